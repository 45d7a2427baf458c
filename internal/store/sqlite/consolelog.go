package sqlite

import (
	"context"
	"database/sql"
	"time"

	"testplane/internal/store"
)

const consoleLogColumns = `id, session_id, log_level, message, stack_trace, truncated_stack,
	source_file, source_line, timestamp, frame_count, is_truncated, context, request_id`

// AppendConsoleLog inserts one captured console line and returns its id.
// The request_id reference is a hint, never validated against test_requests.
func (s *Store) AppendConsoleLog(ctx context.Context, entry *store.ConsoleLogEntry) (int64, error) {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO console_logs (session_id, log_level, message, stack_trace, truncated_stack,
		 source_file, source_line, timestamp, frame_count, is_truncated, context, request_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID, entry.Level, entry.Message,
		strOrNil(entry.StackTrace), strOrNil(entry.TruncatedStack),
		strOrNil(entry.SourceFile), entry.SourceLine, ts,
		entry.FrameCount, entry.IsTruncated, strOrNil(entry.Context), entry.RequestID,
	)
	if err != nil {
		return 0, wrapSchemaErr(err)
	}
	return res.LastInsertId()
}

// QueryConsoleLogs applies the filter conjunctively and returns matches
// newest first.
func (s *Store) QueryConsoleLogs(ctx context.Context, filter store.ConsoleLogFilter) ([]store.ConsoleLogEntry, error) {
	q := `SELECT ` + consoleLogColumns + ` FROM console_logs WHERE 1=1`
	args := []any{}
	if filter.SessionID != "" {
		q += ` AND session_id = ?`
		args = append(args, filter.SessionID)
	}
	if filter.Level != "" {
		q += ` AND log_level = ?`
		args = append(args, filter.Level)
	}
	if !filter.Since.IsZero() {
		q += ` AND timestamp >= ?`
		args = append(args, filter.Since)
	}
	if filter.RequestID != nil {
		q += ` AND request_id = ?`
		args = append(args, *filter.RequestID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	q += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrapSchemaErr(err)
	}
	defer rows.Close()
	return collectConsoleLogs(rows)
}

// ListErrorLogs returns Error entries, optionally widened to Exception and
// Assert, newest first.
func (s *Store) ListErrorLogs(ctx context.Context, limit int, includeExceptions bool) ([]store.ConsoleLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	levels := []any{store.LevelError}
	placeholders := `?`
	if includeExceptions {
		levels = append(levels, store.LevelException, store.LevelAssert)
		placeholders = `?, ?, ?`
	}
	args := append(levels, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+consoleLogColumns+` FROM console_logs
		 WHERE log_level IN (`+placeholders+`)
		 ORDER BY timestamp DESC, id DESC LIMIT ?`,
		args...)
	if err != nil {
		return nil, wrapSchemaErr(err)
	}
	defer rows.Close()
	return collectConsoleLogs(rows)
}

// TailConsoleLogs returns entries with id > lastSeenID in ascending id order.
// Because ids are monotonic, a reader that feeds back the last id it saw
// gets every entry exactly once with no gaps.
func (s *Store) TailConsoleLogs(ctx context.Context, sessionID string, level store.LogLevel, lastSeenID int64) ([]store.ConsoleLogEntry, error) {
	q := `SELECT ` + consoleLogColumns + ` FROM console_logs WHERE id > ?`
	args := []any{lastSeenID}
	if sessionID != "" {
		q += ` AND session_id = ?`
		args = append(args, sessionID)
	}
	if level != "" {
		q += ` AND log_level = ?`
		args = append(args, level)
	}
	q += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrapSchemaErr(err)
	}
	defer rows.Close()
	return collectConsoleLogs(rows)
}

// LastConsoleLogID returns the highest id among matching entries, 0 when
// none exist.
func (s *Store) LastConsoleLogID(ctx context.Context, sessionID string, level store.LogLevel) (int64, error) {
	q := `SELECT COALESCE(MAX(id), 0) FROM console_logs WHERE 1=1`
	args := []any{}
	if sessionID != "" {
		q += ` AND session_id = ?`
		args = append(args, sessionID)
	}
	if level != "" {
		q += ` AND log_level = ?`
		args = append(args, level)
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
		return 0, wrapSchemaErr(err)
	}
	return id, nil
}

// SessionSummary aggregates counts for one session. An empty sessionID
// resolves to the most recently active session; (nil, nil) when none exist.
func (s *Store) SessionSummary(ctx context.Context, sessionID string) (*store.SessionSummary, error) {
	if sessionID == "" {
		err := s.db.QueryRowContext(ctx,
			`SELECT session_id FROM console_logs ORDER BY timestamp DESC, id DESC LIMIT 1`,
		).Scan(&sessionID)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, wrapSchemaErr(err)
		}
	}

	var (
		sum               summaryRow
		firstLog, lastLog sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        SUM(CASE WHEN log_level = 'Info' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN log_level = 'Warning' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN log_level = 'Error' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN log_level = 'Exception' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN log_level = 'Assert' THEN 1 ELSE 0 END),
		        MIN(timestamp), MAX(timestamp)
		 FROM console_logs WHERE session_id = ?`,
		sessionID,
	).Scan(&sum.total, &sum.info, &sum.warning, &sum.errors, &sum.exception, &sum.assert,
		&firstLog, &lastLog)
	if err != nil {
		return nil, wrapSchemaErr(err)
	}
	if sum.total == 0 {
		return nil, nil
	}

	return &store.SessionSummary{
		SessionID:      sessionID,
		TotalLogs:      sum.total,
		InfoCount:      sum.info.int(),
		WarningCount:   sum.warning.int(),
		ErrorCount:     sum.errors.int(),
		ExceptionCount: sum.exception.int(),
		AssertCount:    sum.assert.int(),
		FirstLog:       parseTimePtr(firstLog),
		LastLog:        parseTimePtr(lastLog),
	}, nil
}

// ListSessions returns recent sessions ordered by last activity, newest first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]store.SessionInfo, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, COUNT(*),
		        SUM(CASE WHEN log_level IN ('Error', 'Exception', 'Assert') THEN 1 ELSE 0 END),
		        SUM(CASE WHEN log_level = 'Warning' THEN 1 ELSE 0 END),
		        MIN(timestamp), MAX(timestamp)
		 FROM console_logs
		 GROUP BY session_id
		 ORDER BY MAX(timestamp) DESC
		 LIMIT ?`,
		limit)
	if err != nil {
		return nil, wrapSchemaErr(err)
	}
	defer rows.Close()

	var out []store.SessionInfo
	for rows.Next() {
		var (
			info             store.SessionInfo
			errors, warnings nullCount
			start, end       sql.NullString
		)
		if err := rows.Scan(&info.SessionID, &info.LogCount, &errors, &warnings, &start, &end); err != nil {
			return nil, err
		}
		info.ErrorCount = errors.int()
		info.WarningCount = warnings.int()
		info.StartTime = parseTimePtr(start)
		info.EndTime = parseTimePtr(end)
		out = append(out, info)
	}
	return out, rows.Err()
}

// PruneConsoleLogs deletes entries strictly older than now-olderThan.
// Calling it again with the same window removes nothing further.
func (s *Store) PruneConsoleLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := now().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `DELETE FROM console_logs WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, wrapSchemaErr(err)
	}
	return res.RowsAffected()
}

// nullCount reads SUM() results, which are NULL over an empty group.
type nullCount sql.NullInt64

func (n *nullCount) Scan(v any) error {
	return (*sql.NullInt64)(n).Scan(v)
}

func (n nullCount) int() int {
	if n.Valid {
		return int(n.Int64)
	}
	return 0
}

type summaryRow struct {
	total                                    int
	info, warning, errors, exception, assert nullCount
}

func collectConsoleLogs(rows *sql.Rows) ([]store.ConsoleLogEntry, error) {
	var out []store.ConsoleLogEntry
	for rows.Next() {
		var (
			e                 store.ConsoleLogEntry
			stack, truncStack sql.NullString
			srcFile, logCtx   sql.NullString
			srcLine           sql.NullInt64
			frameCount        sql.NullInt64
			requestID         sql.NullInt64
		)
		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.Level, &e.Message, &stack, &truncStack,
			&srcFile, &srcLine, &e.Timestamp, &frameCount, &e.IsTruncated, &logCtx, &requestID,
		); err != nil {
			return nil, err
		}
		e.StackTrace = nullStr(stack)
		e.TruncatedStack = nullStr(truncStack)
		e.SourceFile = nullStr(srcFile)
		e.SourceLine = int(srcLine.Int64)
		e.FrameCount = int(frameCount.Int64)
		e.Context = nullStr(logCtx)
		if requestID.Valid {
			id := requestID.Int64
			e.RequestID = &id
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
