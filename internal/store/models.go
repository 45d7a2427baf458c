// Package store contains the database layer for testplane.
package store

import (
	"fmt"
	"time"
)

// RequestStatus represents the lifecycle state of a work request.
// Requests only move forward: pending -> running -> terminal, or
// pending/running -> cancelled. Terminal states are never left.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusRunning   RequestStatus = "running"
	StatusCompleted RequestStatus = "completed"
	StatusFailed    RequestStatus = "failed"
	StatusCancelled RequestStatus = "cancelled"
)

// Terminal reports whether no further transition is permitted.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// TestRequestType selects which tests a request targets.
type TestRequestType string

const (
	TestAll      TestRequestType = "all"
	TestClass    TestRequestType = "class"
	TestMethod   TestRequestType = "method"
	TestCategory TestRequestType = "category"
)

// TestPlatform selects the host test platform.
type TestPlatform string

const (
	PlatformEditMode TestPlatform = "EditMode"
	PlatformPlayMode TestPlatform = "PlayMode"
	PlatformBoth     TestPlatform = "Both"
)

// RefreshType selects the scope of an asset refresh.
type RefreshType string

const (
	RefreshFull      RefreshType = "full"
	RefreshSelective RefreshType = "selective"
)

// ImportOptions controls how the host imports refreshed assets.
type ImportOptions string

const (
	ImportDefault     ImportOptions = "default"
	ImportSynchronous ImportOptions = "synchronous"
	ImportForceUpdate ImportOptions = "force_update"
)

// TestRequest is a queued test-run work item.
type TestRequest struct {
	ID              int64
	RequestType     TestRequestType
	TestFilter      string
	Platform        TestPlatform
	Status          RequestStatus
	Priority        int
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	ResultSummary   string
	ErrorMessage    string
	TotalTests      int
	PassedTests     int
	FailedTests     int
	SkippedTests    int
	DurationSeconds float64
}

// NewTestRequest is the submission payload for a test request.
type NewTestRequest struct {
	RequestType TestRequestType
	TestFilter  string
	Platform    TestPlatform
	Priority    int
}

// Validate checks the enum domains at the boundary; the store's CHECK
// constraints are the backstop, not the primary validation.
func (r NewTestRequest) Validate() error {
	switch r.RequestType {
	case TestAll, TestClass, TestMethod, TestCategory:
	default:
		return fmt.Errorf("invalid request type %q", r.RequestType)
	}
	switch r.Platform {
	case PlatformEditMode, PlatformPlayMode, PlatformBoth:
	default:
		return fmt.Errorf("invalid test platform %q", r.Platform)
	}
	if r.RequestType != TestAll && r.TestFilter == "" {
		return fmt.Errorf("request type %q requires a test filter", r.RequestType)
	}
	return nil
}

// TestOutcome carries the write-once result fields recorded when a test
// request enters a terminal state.
type TestOutcome struct {
	Summary  string
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// RefreshRequest is a queued asset-refresh work item.
type RefreshRequest struct {
	ID              int64
	RefreshType     RefreshType
	Paths           []string
	ImportOptions   ImportOptions
	Status          RequestStatus
	Priority        int
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	DurationSeconds float64
	ResultMessage   string
	ErrorMessage    string
}

// NewRefreshRequest is the submission payload for a refresh request.
type NewRefreshRequest struct {
	RefreshType   RefreshType
	Paths         []string
	ImportOptions ImportOptions
	Priority      int
}

func (r NewRefreshRequest) Validate() error {
	switch r.RefreshType {
	case RefreshFull, RefreshSelective:
	default:
		return fmt.Errorf("invalid refresh type %q", r.RefreshType)
	}
	switch r.ImportOptions {
	case ImportDefault, ImportSynchronous, ImportForceUpdate:
	default:
		return fmt.Errorf("invalid import options %q", r.ImportOptions)
	}
	if r.RefreshType == RefreshSelective && len(r.Paths) == 0 {
		return fmt.Errorf("selective refresh requires at least one path")
	}
	return nil
}

// RefreshOutcome carries the result fields for a terminal refresh request.
type RefreshOutcome struct {
	Message  string
	Duration time.Duration
}

// TestCaseResult is the per-test verdict domain.
type TestCaseResult string

const (
	ResultPassed       TestCaseResult = "Passed"
	ResultFailed       TestCaseResult = "Failed"
	ResultSkipped      TestCaseResult = "Skipped"
	ResultInconclusive TestCaseResult = "Inconclusive"
)

// TestResult is one executed test case belonging to a test request.
// Rows are written by the executor after the run and never mutated;
// they cascade away with their parent request.
type TestResult struct {
	ID           int64
	RequestID    int64
	TestName     string
	TestClass    string
	TestMethod   string
	Result       TestCaseResult
	DurationMS   float64
	ErrorMessage string
	StackTrace   string
	CreatedAt    time.Time
}

// LogLevel is the console log severity domain.
type LogLevel string

const (
	LevelInfo      LogLevel = "Info"
	LevelWarning   LogLevel = "Warning"
	LevelError     LogLevel = "Error"
	LevelException LogLevel = "Exception"
	LevelAssert    LogLevel = "Assert"
)

// ConsoleLogEntry is one captured host console line. Append-only.
// RequestID is a referential hint, not an enforced foreign key: an entry
// must be insertable even when the referenced request is absent.
type ConsoleLogEntry struct {
	ID             int64
	SessionID      string
	Level          LogLevel
	Message        string
	StackTrace     string
	TruncatedStack string
	SourceFile     string
	SourceLine     int
	Timestamp      time.Time
	FrameCount     int
	IsTruncated    bool
	Context        string
	RequestID      *int64
}

// ExecLogLevel is the execution/diagnostic log severity domain.
type ExecLogLevel string

const (
	ExecDebug   ExecLogLevel = "DEBUG"
	ExecInfo    ExecLogLevel = "INFO"
	ExecWarning ExecLogLevel = "WARNING"
	ExecError   ExecLogLevel = "ERROR"
)

// ExecutionLogEntry is one diagnostic trail entry, optionally tied to a
// test request (and cascading away with it).
type ExecutionLogEntry struct {
	ID        int64
	RequestID *int64
	Level     ExecLogLevel
	Message   string
	Source    string
	CreatedAt time.Time
}

// Component names the fixed set of logical processes that heartbeat.
type Component string

const (
	ComponentController Component = "Controller"
	ComponentExecutor   Component = "Executor"
	ComponentDatabase   Component = "Database"
)

// ComponentStatus is the liveness state of a component.
type ComponentStatus string

const (
	ComponentOnline  ComponentStatus = "online"
	ComponentOffline ComponentStatus = "offline"
	ComponentError   ComponentStatus = "error"
)

// SystemStatus is the single liveness row kept per component; it is only
// ever upserted in place, never multiplied.
type SystemStatus struct {
	ID            int64
	Component     Component
	Status        ComponentStatus
	LastHeartbeat time.Time
	Message       string
	Metadata      string
}

// SessionSummary aggregates console logs for one session.
type SessionSummary struct {
	SessionID      string
	TotalLogs      int
	InfoCount      int
	WarningCount   int
	ErrorCount     int
	ExceptionCount int
	AssertCount    int
	FirstLog       *time.Time
	LastLog        *time.Time
}

// SessionInfo is one row of the recent-session listing.
type SessionInfo struct {
	SessionID    string
	LogCount     int
	ErrorCount   int
	WarningCount int
	StartTime    *time.Time
	EndTime      *time.Time
}

// ConsoleLogFilter narrows console log queries; zero values mean "no filter".
// Filters are conjunctive.
type ConsoleLogFilter struct {
	SessionID string
	Level     LogLevel
	Since     time.Time
	RequestID *int64
	Limit     int
}
