package sqlite

import (
	"context"
	"fmt"

	"testplane/internal/store"
)

// requestTable parameterizes the transition SQL shared by the two work-item
// kinds. Every mutation that must survive a cross-process race is a single
// conditional UPDATE; the rows-affected count is the only arbiter.
type requestTable struct {
	name            string
	cancelSetsError bool
}

var (
	testRequestsTable    = requestTable{name: "test_requests", cancelSetsError: true}
	refreshRequestsTable = requestTable{name: "asset_refresh_requests"}
)

// cancelRequest cancels iff the row is still pending or running. The
// predicate collapses the cancel-vs-complete race: exactly one of the two
// writers matches, the other affects zero rows.
func (s *Store) cancelRequest(ctx context.Context, t requestTable, id int64) (bool, error) {
	q := fmt.Sprintf(`UPDATE %s SET status = ?, completed_at = ?`, t.name)
	args := []any{store.StatusCancelled, now()}
	if t.cancelSetsError {
		q += `, error_message = ?`
		args = append(args, "Cancelled by user")
	}
	q += ` WHERE id = ? AND status IN (?, ?)`
	args = append(args, id, store.StatusPending, store.StatusRunning)

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, wrapSchemaErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// claimRequest transitions pending -> running, setting started_at exactly
// once. A zero row count means another writer (a cancel, or a peer claim)
// got there first.
func (s *Store) claimRequest(ctx context.Context, t requestTable, id int64) (bool, error) {
	q := fmt.Sprintf(
		`UPDATE %s SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
		t.name,
	)
	res, err := s.db.ExecContext(ctx, q, store.StatusRunning, now(), id, store.StatusPending)
	if err != nil {
		return false, wrapSchemaErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// pendingIDs returns claim candidates in scheduling order: priority
// descending, then created_at ascending, id as the final tiebreaker.
func (s *Store) pendingIDs(ctx context.Context, t requestTable, limit int) ([]int64, error) {
	q := fmt.Sprintf(
		`SELECT id FROM %s WHERE status = ? ORDER BY priority DESC, created_at ASC, id ASC LIMIT ?`,
		t.name,
	)
	rows, err := s.db.QueryContext(ctx, q, store.StatusPending, limit)
	if err != nil {
		return nil, wrapSchemaErr(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) deleteRequest(ctx context.Context, t requestTable, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t.name), id)
	if err != nil {
		return false, wrapSchemaErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
