package store

import (
	"context"
	"errors"
	"time"
)

// ErrSchemaMissing is returned when an operation hits a store that has not
// been initialized. The fix is always the same: run schema initialization
// first; no component attempts implicit self-healing.
var ErrSchemaMissing = errors.New("coordination schema missing")

// Schema manages the table set shared by both processes.
type Schema interface {
	// Initialize creates every table and index if absent and records the
	// store itself as online. Idempotent.
	Initialize(ctx context.Context) error

	// Verify reports the expected tables that are missing, if any.
	Verify(ctx context.Context) (missing []string, err error)

	// Reset destroys the backing store and reinitializes it. Test/setup
	// flows only, never a live queue.
	Reset(ctx context.Context) error
}

// TestRequestStore is the ledger for test-run work items.
//
// All transition methods are single conditional statements: the returned
// bool reports whether the predicate matched and the row was written, so a
// cancel racing a completion resolves to exactly one winner.
type TestRequestStore interface {
	SubmitTest(ctx context.Context, req NewTestRequest) (int64, error)

	// GetTest returns (nil, nil) when the id is absent.
	GetTest(ctx context.Context, id int64) (*TestRequest, error)

	// ListPendingTests returns pending items ordered priority DESC,
	// created_at ASC. This is the claim order executors honor.
	ListPendingTests(ctx context.Context) ([]TestRequest, error)

	// ListTests returns recent requests, newest first, optionally filtered
	// by status. limit <= 0 means a default cap.
	ListTests(ctx context.Context, status RequestStatus, limit int) ([]TestRequest, error)

	// CancelTest cancels iff the item is still pending or running.
	CancelTest(ctx context.Context, id int64) (bool, error)

	// DeleteTest removes a request; child rows cascade.
	DeleteTest(ctx context.Context, id int64) (bool, error)

	// ClaimNextTest transitions the first claimable pending item to
	// running, setting started_at. Returns (nil, nil) on an empty queue.
	ClaimNextTest(ctx context.Context) (*TestRequest, error)

	// CompleteTest transitions running -> completed, writing the outcome.
	CompleteTest(ctx context.Context, id int64, outcome TestOutcome) (bool, error)

	// FailTest transitions running -> failed with an error message.
	FailTest(ctx context.Context, id int64, errMsg string) (bool, error)
}

// RefreshRequestStore is the ledger for asset-refresh work items; it is
// structurally parallel to TestRequestStore.
type RefreshRequestStore interface {
	SubmitRefresh(ctx context.Context, req NewRefreshRequest) (int64, error)
	GetRefresh(ctx context.Context, id int64) (*RefreshRequest, error)
	ListPendingRefreshes(ctx context.Context) ([]RefreshRequest, error)
	CancelRefresh(ctx context.Context, id int64) (bool, error)
	DeleteRefresh(ctx context.Context, id int64) (bool, error)
	ClaimNextRefresh(ctx context.Context) (*RefreshRequest, error)
	CompleteRefresh(ctx context.Context, id int64, outcome RefreshOutcome) (bool, error)
	FailRefresh(ctx context.Context, id int64, errMsg string) (bool, error)
}

// TestResultStore persists per-test-case verdicts for a completed request.
type TestResultStore interface {
	AddTestResults(ctx context.Context, requestID int64, results []TestResult) error

	// ListTestResults returns results ordered by test name.
	ListTestResults(ctx context.Context, requestID int64) ([]TestResult, error)
}

// ConsoleLogStore is the append-only console capture shared with the host.
type ConsoleLogStore interface {
	AppendConsoleLog(ctx context.Context, entry *ConsoleLogEntry) (int64, error)

	// QueryConsoleLogs applies the filter conjunctively, newest first.
	QueryConsoleLogs(ctx context.Context, filter ConsoleLogFilter) ([]ConsoleLogEntry, error)

	// ListErrorLogs returns Error (and optionally Exception/Assert)
	// entries, newest first.
	ListErrorLogs(ctx context.Context, limit int, includeExceptions bool) ([]ConsoleLogEntry, error)

	// TailConsoleLogs returns entries with id > lastSeenID in id order,
	// for gap-free incremental reads.
	TailConsoleLogs(ctx context.Context, sessionID string, level LogLevel, lastSeenID int64) ([]ConsoleLogEntry, error)

	// LastConsoleLogID returns the highest id among matching entries, 0
	// when none exist. Tail readers seed from it; ids follow insertion
	// order even when writer clocks disagree.
	LastConsoleLogID(ctx context.Context, sessionID string, level LogLevel) (int64, error)

	// SessionSummary aggregates one session; empty sessionID resolves to
	// the most recently active session. Returns (nil, nil) when no
	// sessions exist.
	SessionSummary(ctx context.Context, sessionID string) (*SessionSummary, error)

	// ListSessions returns recent sessions, most recently active first.
	ListSessions(ctx context.Context, limit int) ([]SessionInfo, error)

	// PruneConsoleLogs deletes entries strictly older than now-olderThan
	// and returns the count removed.
	PruneConsoleLogs(ctx context.Context, olderThan time.Duration) (int64, error)
}

// ExecutionLogStore is the diagnostic trail shared by both sides.
type ExecutionLogStore interface {
	AppendExecutionLog(ctx context.Context, entry *ExecutionLogEntry) error

	// ListExecutionLog returns entries newest first, optionally scoped to
	// one request.
	ListExecutionLog(ctx context.Context, requestID *int64, limit int) ([]ExecutionLogEntry, error)
}

// StatusStore keeps the one-row-per-component liveness registry.
type StatusStore interface {
	// UpsertStatus atomically inserts or refreshes the component's row.
	UpsertStatus(ctx context.Context, component Component, status ComponentStatus, message string) error

	GetStatus(ctx context.Context, component Component) (*SystemStatus, error)
	ListStatus(ctx context.Context) ([]SystemStatus, error)
}
