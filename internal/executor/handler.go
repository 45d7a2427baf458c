package executor

import (
	"context"
	"fmt"
	"time"

	"testplane/internal/store"
)

// Handler executes claimed work inside the host application. Implementations
// run on the host side of the database boundary; the runner never assumes
// anything about how tests actually execute.
type Handler interface {
	// RunTests executes the request and returns the aggregate outcome plus
	// per-test verdicts.
	RunTests(ctx context.Context, req store.TestRequest) (store.TestOutcome, []store.TestResult, error)

	// RefreshAssets performs the asset refresh.
	RefreshAssets(ctx context.Context, req store.RefreshRequest) (store.RefreshOutcome, error)
}

// StubHandler satisfies Handler without a host application attached. Every
// request passes after an optional simulated delay; useful for wiring tests
// and for exercising the queue end to end on a dev machine.
type StubHandler struct {
	Delay time.Duration
}

func (h StubHandler) RunTests(ctx context.Context, req store.TestRequest) (store.TestOutcome, []store.TestResult, error) {
	if err := h.sleep(ctx); err != nil {
		return store.TestOutcome{}, nil, err
	}

	name := "AllTests"
	if req.TestFilter != "" {
		name = req.TestFilter
	}
	results := []store.TestResult{{
		TestName:   name,
		TestClass:  req.TestFilter,
		Result:     store.ResultPassed,
		DurationMS: float64(h.Delay.Milliseconds()),
	}}

	outcome := store.TestOutcome{
		Summary:  fmt.Sprintf("Stub run for %s request", req.RequestType),
		Total:    1,
		Passed:   1,
		Duration: h.Delay,
	}
	return outcome, results, nil
}

func (h StubHandler) RefreshAssets(ctx context.Context, req store.RefreshRequest) (store.RefreshOutcome, error) {
	if err := h.sleep(ctx); err != nil {
		return store.RefreshOutcome{}, err
	}
	return store.RefreshOutcome{
		Message:  fmt.Sprintf("Stub %s refresh of %d paths", req.RefreshType, len(req.Paths)),
		Duration: h.Delay,
	}, nil
}

func (h StubHandler) sleep(ctx context.Context) error {
	if h.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(h.Delay):
		return nil
	}
}
