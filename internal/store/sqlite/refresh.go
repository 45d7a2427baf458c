package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"testplane/internal/store"
)

const refreshRequestColumns = `id, refresh_type, paths, import_options, status, priority,
	created_at, started_at, completed_at, duration_seconds, result_message, error_message`

// SubmitRefresh inserts a pending asset-refresh request. Paths are stored as
// a JSON array so a selective refresh round-trips its exact path list.
func (s *Store) SubmitRefresh(ctx context.Context, req store.NewRefreshRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	var paths any
	if len(req.Paths) > 0 {
		encoded, err := json.Marshal(req.Paths)
		if err != nil {
			return 0, fmt.Errorf("failed to encode refresh paths: %w", err)
		}
		paths = string(encoded)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO asset_refresh_requests (refresh_type, paths, import_options, status, priority, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		req.RefreshType, paths, req.ImportOptions, store.StatusPending, req.Priority, now(),
	)
	if err != nil {
		return 0, wrapSchemaErr(err)
	}
	return res.LastInsertId()
}

// GetRefresh returns the request by id, or (nil, nil) when it does not exist.
func (s *Store) GetRefresh(ctx context.Context, id int64) (*store.RefreshRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+refreshRequestColumns+` FROM asset_refresh_requests WHERE id = ?`, id)
	req, err := scanRefreshRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapSchemaErr(err)
	}
	return req, nil
}

// ListPendingRefreshes returns the pending queue in claim order.
func (s *Store) ListPendingRefreshes(ctx context.Context) ([]store.RefreshRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+refreshRequestColumns+` FROM asset_refresh_requests
		 WHERE status = ? ORDER BY priority DESC, created_at ASC, id ASC`,
		store.StatusPending)
	if err != nil {
		return nil, wrapSchemaErr(err)
	}
	defer rows.Close()

	var out []store.RefreshRequest
	for rows.Next() {
		req, err := scanRefreshRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func (s *Store) CancelRefresh(ctx context.Context, id int64) (bool, error) {
	return s.cancelRequest(ctx, refreshRequestsTable, id)
}

func (s *Store) DeleteRefresh(ctx context.Context, id int64) (bool, error) {
	return s.deleteRequest(ctx, refreshRequestsTable, id)
}

// ClaimNextRefresh claims the highest-priority pending refresh.
func (s *Store) ClaimNextRefresh(ctx context.Context) (*store.RefreshRequest, error) {
	ids, err := s.pendingIDs(ctx, refreshRequestsTable, 10)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		claimed, err := s.claimRequest(ctx, refreshRequestsTable, id)
		if err != nil {
			return nil, err
		}
		if claimed {
			return s.GetRefresh(ctx, id)
		}
	}
	return nil, nil
}

// CompleteRefresh transitions running -> completed with the outcome.
func (s *Store) CompleteRefresh(ctx context.Context, id int64, outcome store.RefreshOutcome) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE asset_refresh_requests
		 SET status = ?, completed_at = ?, result_message = ?, duration_seconds = ?
		 WHERE id = ? AND status = ?`,
		store.StatusCompleted, now(), strOrNil(outcome.Message),
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

// FailRefresh transitions running -> failed with the error message.
func (s *Store) FailRefresh(ctx context.Context, id int64, errMsg string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE asset_refresh_requests SET status = ?, completed_at = ?, error_message = ?
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

func scanRefreshRequest(row rowScanner) (*store.RefreshRequest, error) {
	var (
		req                    store.RefreshRequest
		paths, result, emsg    sql.NullString
		createdAt              time.Time
		startedAt, completedAt sql.NullTime
	)
	err := row.Scan(
		&req.ID, &req.RefreshType, &paths, &req.ImportOptions, &req.Status, &req.Priority,
		&createdAt, &startedAt, &completedAt, &req.DurationSeconds, &result, &emsg,
	)
	if err != nil {
		return nil, err
	}
	if paths.Valid && paths.String != "" {
		if err := json.Unmarshal([]byte(paths.String), &req.Paths); err != nil {
			return nil, fmt.Errorf("corrupt paths column on refresh %d: %w", req.ID, err)
		}
	}
	req.ResultMessage = nullStr(result)
	req.ErrorMessage = nullStr(emsg)
	req.CreatedAt = createdAt
	req.StartedAt = nullTimePtr(startedAt)
	req.CompletedAt = nullTimePtr(completedAt)
	return &req, nil
}
