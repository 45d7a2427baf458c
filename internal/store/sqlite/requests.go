package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"testplane/internal/store"
)

const testRequestColumns = `id, request_type, test_filter, test_platform, status, priority,
	created_at, started_at, completed_at, result_summary, error_message,
	total_tests, passed_tests, failed_tests, skipped_tests, duration_seconds`

// SubmitTest inserts a pending test request and records a diagnostic trail
// entry in the same transaction, so a submit is never visible without it.
func (s *Store) SubmitTest(ctx context.Context, req store.NewTestRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO test_requests (request_type, test_filter, test_platform, status, priority, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		req.RequestType, strOrNil(req.TestFilter), req.Platform, store.StatusPending, req.Priority, now(),
	)
	if err != nil {
		return 0, wrapSchemaErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	msg := fmt.Sprintf("Test request submitted: %s", req.RequestType)
	if req.TestFilter != "" {
		msg = fmt.Sprintf("Test request submitted: %s %s", req.RequestType, req.TestFilter)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO execution_log (request_id, log_level, message, source, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, store.ExecInfo, msg, "controller", now(),
	); err != nil {
		return 0, wrapSchemaErr(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetTest returns the request by id, or (nil, nil) when it does not exist.
func (s *Store) GetTest(ctx context.Context, id int64) (*store.TestRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+testRequestColumns+` FROM test_requests WHERE id = ?`, id)
	req, err := scanTestRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapSchemaErr(err)
	}
	return req, nil
}

// ListPendingTests returns the pending queue in claim order.
func (s *Store) ListPendingTests(ctx context.Context) ([]store.TestRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+testRequestColumns+` FROM test_requests
		 WHERE status = ? ORDER BY priority DESC, created_at ASC, id ASC`,
		store.StatusPending)
	if err != nil {
		return nil, wrapSchemaErr(err)
	}
	defer rows.Close()
	return collectTestRequests(rows)
}

// ListTests returns recent requests newest first, optionally filtered by
// status. limit <= 0 falls back to a default cap of 20.
func (s *Store) ListTests(ctx context.Context, status store.RequestStatus, limit int) ([]store.TestRequest, error) {
	if limit <= 0 {
		limit = 20
	}

	q := `SELECT ` + testRequestColumns + ` FROM test_requests`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrapSchemaErr(err)
	}
	defer rows.Close()
	return collectTestRequests(rows)
}

func (s *Store) CancelTest(ctx context.Context, id int64) (bool, error) {
	return s.cancelRequest(ctx, testRequestsTable, id)
}

func (s *Store) DeleteTest(ctx context.Context, id int64) (bool, error) {
	return s.deleteRequest(ctx, testRequestsTable, id)
}

// ClaimNextTest claims the highest-priority pending request. Candidates are
// read first, then claimed with a conditional update; a candidate lost to a
// concurrent writer just moves the loop to the next one.
func (s *Store) ClaimNextTest(ctx context.Context) (*store.TestRequest, error) {
	ids, err := s.pendingIDs(ctx, testRequestsTable, 10)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		claimed, err := s.claimRequest(ctx, testRequestsTable, id)
		if err != nil {
			return nil, err
		}
		if claimed {
			return s.GetTest(ctx, id)
		}
	}
	return nil, nil
}

// CompleteTest transitions running -> completed and writes the outcome
// fields. A request that is no longer running (cancelled, already terminal)
// is left untouched and false is returned.
func (s *Store) CompleteTest(ctx context.Context, id int64, outcome store.TestOutcome) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE test_requests
		 SET status = ?, completed_at = ?, result_summary = ?,
		     total_tests = ?, passed_tests = ?, failed_tests = ?, skipped_tests = ?,
		     duration_seconds = ?
		 WHERE id = ? AND status = ?`,
		store.StatusCompleted, now(), strOrNil(outcome.Summary),
		outcome.Total, outcome.Passed, outcome.Failed, outcome.Skipped,
		outcome.Duration.Seconds(), id, store.StatusRunning,
	)
	if err != nil {
		return false, wrapSchemaErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// FailTest transitions running -> failed with the error message.
func (s *Store) FailTest(ctx context.Context, id int64, errMsg string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE test_requests SET status = ?, completed_at = ?, error_message = ?
		 WHERE id = ? AND status = ?`,
		store.StatusFailed, now(), errMsg, id, store.StatusRunning,
	)
	if err != nil {
		return false, wrapSchemaErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTestRequest(row rowScanner) (*store.TestRequest, error) {
	var (
		req                    store.TestRequest
		filter, summary, emsg  sql.NullString
		createdAt              time.Time
		startedAt, completedAt sql.NullTime
	)
	err := row.Scan(
		&req.ID, &req.RequestType, &filter, &req.Platform, &req.Status, &req.Priority,
		&createdAt, &startedAt, &completedAt, &summary, &emsg,
		&req.TotalTests, &req.PassedTests, &req.FailedTests, &req.SkippedTests,
		&req.DurationSeconds,
	)
	if err != nil {
		return nil, err
	}
	req.TestFilter = nullStr(filter)
	req.ResultSummary = nullStr(summary)
	req.ErrorMessage = nullStr(emsg)
	req.CreatedAt = createdAt
	req.StartedAt = nullTimePtr(startedAt)
	req.CompletedAt = nullTimePtr(completedAt)
	return &req, nil
}

func collectTestRequests(rows *sql.Rows) ([]store.TestRequest, error) {
	var out []store.TestRequest
	for rows.Next() {
		req, err := scanTestRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}
