package sqlite

import (
	"context"
	"database/sql"

	"testplane/internal/store"
)

// AppendExecutionLog writes one diagnostic trail entry.
func (s *Store) AppendExecutionLog(ctx context.Context, entry *store.ExecutionLogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO execution_log (request_id, log_level, message, source, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.RequestID, entry.Level, entry.Message, strOrNil(entry.Source), now(),
	)
	return wrapSchemaErr(err)
}

// ListExecutionLog returns entries newest first, optionally scoped to one
// request.
func (s *Store) ListExecutionLog(ctx context.Context, requestID *int64, limit int) ([]store.ExecutionLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	q := `SELECT id, request_id, log_level, message, source, created_at FROM execution_log`
	args := []any{}
	if requestID != nil {
		q += ` WHERE request_id = ?`
		args = append(args, *requestID)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrapSchemaErr(err)
	}
	defer rows.Close()

	var out []store.ExecutionLogEntry
	for rows.Next() {
		var (
			e      store.ExecutionLogEntry
			reqID  sql.NullInt64
			source sql.NullString
		)
		if err := rows.Scan(&e.ID, &reqID, &e.Level, &e.Message, &source, &e.CreatedAt); err != nil {
			return nil, err
		}
		if reqID.Valid {
			id := reqID.Int64
			e.RequestID = &id
		}
		e.Source = nullStr(source)
		out = append(out, e)
	}
	return out, rows.Err()
}
