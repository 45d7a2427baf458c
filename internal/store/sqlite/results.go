package sqlite

import (
	"context"
	"database/sql"

	"testplane/internal/store"
)

// AddTestResults writes per-test-case verdicts in one transaction so a
// partially written result set never becomes visible.
func (s *Store) AddTestResults(ctx context.Context, requestID int64, results []store.TestResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO test_results (request_id, test_name, test_class, test_method, result,
		 duration_ms, error_message, stack_trace, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return wrapSchemaErr(err)
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx,
			requestID, r.TestName, strOrNil(r.TestClass), strOrNil(r.TestMethod), r.Result,
			r.DurationMS, strOrNil(r.ErrorMessage), strOrNil(r.StackTrace), now(),
		); err != nil {
			return wrapSchemaErr(err)
		}
	}
	return tx.Commit()
}

// ListTestResults returns the verdicts for a request, ordered by test name.
func (s *Store) ListTestResults(ctx context.Context, requestID int64) ([]store.TestResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, test_name, test_class, test_method, result,
		 duration_ms, error_message, stack_trace, created_at
		 FROM test_results WHERE request_id = ? ORDER BY test_name ASC`,
		requestID)
	if err != nil {
		return nil, wrapSchemaErr(err)
	}
	defer rows.Close()

	var out []store.TestResult
	for rows.Next() {
		var (
			r             store.TestResult
			class, method sql.NullString
			errMsg, stack sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &r.RequestID, &r.TestName, &class, &method, &r.Result,
			&r.DurationMS, &errMsg, &stack, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		r.TestClass = nullStr(class)
		r.TestMethod = nullStr(method)
		r.ErrorMessage = nullStr(errMsg)
		r.StackTrace = nullStr(stack)
		out = append(out, r)
	}
	return out, rows.Err()
}
