// Package sqlite implements the store interfaces on a shared SQLite file.
//
// The database file is the only channel between the controller and the
// host-side executor, so every method opens no long-lived state beyond the
// pooled connection: open, act, release. WAL mode plus busy_timeout gives
// cross-process readers a consistent view while one side writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"testplane/internal/store"
)

// Store provides SQLite-backed implementations of all repositories.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the coordination database. It does not
// create the schema; call Initialize for that.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open coordination database %s: %w", path, err)
	}
	// A single connection serializes in-process writers; cross-process
	// contention is handled by busy_timeout.
	db.SetMaxOpenConns(1)

	return &Store{db: db, path: path}, nil
}

// NewWithDB wraps an existing handle. Tests use it to substitute a fake
// driver; Reset is not supported on a store built this way.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for migrations and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// expectedTables is the complete table set every component depends on.
var expectedTables = []string{
	"test_requests",
	"test_results",
	"asset_refresh_requests",
	"console_logs",
	"execution_log",
	"system_status",
}

// Initialize creates the full schema if absent and marks the store itself
// online. Safe to call repeatedly.
func (s *Store) Initialize(ctx context.Context) error {
	if err := Migrate(s.db); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	return s.UpsertStatus(ctx, store.ComponentDatabase, store.ComponentOnline, "Database initialized successfully")
}

// Verify reports which expected tables are missing.
func (s *Store) Verify(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	present := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		present[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, table := range expectedTables {
		if _, ok := present[table]; !ok {
			missing = append(missing, table)
		}
	}
	return missing, nil
}

// Reset removes the database file (and its WAL siblings) and recreates the
// schema from scratch. Destroys all queue state; test/setup flows only.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return err
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(s.path + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", s.path+suffix, err)
		}
	}

	reopened, err := Open(s.path)
	if err != nil {
		return err
	}
	s.db = reopened.db
	return s.Initialize(ctx)
}

// wrapSchemaErr maps "no such table" failures onto ErrSchemaMissing so
// callers can tell the user to run initialization instead of surfacing a
// raw driver error.
func wrapSchemaErr(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: run 'testctl init' first (%v)", store.ErrSchemaMissing, err)
	}
	return err
}

func now() time.Time {
	return time.Now().UTC()
}

// nullStr converts optional text columns for scanning into plain strings.
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// sqliteTimeFormats covers the layouts the driver writes timestamps in.
// Aggregate expressions lose the column's declared type, so MIN/MAX results
// come back as strings and need parsing by hand.
var sqliteTimeFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	for _, layout := range sqliteTimeFormats {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return &t
		}
	}
	return nil
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		t := nt.Time
		return &t
	}
	return nil
}

// strOrNil stores empty strings as NULL so optional columns stay NULL-clean.
func strOrNil(v string) any {
	if v == "" {
		return nil
	}
	return v
}

var _ store.Schema = (*Store)(nil)
var _ store.TestRequestStore = (*Store)(nil)
var _ store.RefreshRequestStore = (*Store)(nil)
var _ store.TestResultStore = (*Store)(nil)
var _ store.ConsoleLogStore = (*Store)(nil)
var _ store.ExecutionLogStore = (*Store)(nil)
var _ store.StatusStore = (*Store)(nil)
