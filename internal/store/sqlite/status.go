package sqlite

import (
	"context"
	"database/sql"

	"testplane/internal/store"
)

// UpsertStatus inserts or refreshes the component's single liveness row in
// one atomic statement. Repeated heartbeats never multiply rows.
func (s *Store) UpsertStatus(ctx context.Context, component store.Component, status store.ComponentStatus, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO system_status (component, status, last_heartbeat, message)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(component) DO UPDATE SET
		     status = excluded.status,
		     last_heartbeat = excluded.last_heartbeat,
		     message = excluded.message`,
		component, status, now(), strOrNil(message),
	)
	return wrapSchemaErr(err)
}

// GetStatus returns the component's row, or (nil, nil) when it has never
// reported.
func (s *Store) GetStatus(ctx context.Context, component store.Component) (*store.SystemStatus, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, component, status, last_heartbeat, message, metadata
		 FROM system_status WHERE component = ?`, component)
	st, err := scanSystemStatus(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapSchemaErr(err)
	}
	return st, nil
}

// ListStatus returns every component row.
func (s *Store) ListStatus(ctx context.Context) ([]store.SystemStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, component, status, last_heartbeat, message, metadata
		 FROM system_status ORDER BY component ASC`)
	if err != nil {
		return nil, wrapSchemaErr(err)
	}
	defer rows.Close()

	var out []store.SystemStatus
	for rows.Next() {
		st, err := scanSystemStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func scanSystemStatus(row rowScanner) (*store.SystemStatus, error) {
	var (
		st                store.SystemStatus
		message, metadata sql.NullString
	)
	if err := row.Scan(&st.ID, &st.Component, &st.Status, &st.LastHeartbeat, &message, &metadata); err != nil {
		return nil, err
	}
	st.Message = nullStr(message)
	st.Metadata = nullStr(metadata)
	return &st, nil
}
