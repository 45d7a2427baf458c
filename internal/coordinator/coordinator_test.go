package coordinator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"testplane/internal/store"
	"testplane/internal/store/sqlite"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *sqlite.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coordination.db")
	st, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return New(st, st, log, 10*time.Millisecond), st
}

func TestWaitTestReturnsFinalSnapshot(t *testing.T) {
	coord, st := newTestCoordinator(t)
	ctx := context.Background()

	id, err := coord.SubmitTest(ctx, store.NewTestRequest{
		RequestType: store.TestAll,
		Platform:    store.PlatformEditMode,
	})
	if err != nil {
		t.Fatalf("SubmitTest: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		if _, err := st.ClaimNextTest(ctx); err != nil {
			return
		}
		st.CompleteTest(ctx, id, store.TestOutcome{Summary: "done", Total: 2, Passed: 2})
	}()

	final, err := coord.WaitTest(ctx, id, 2*time.Second)
	if err != nil {
		t.Fatalf("WaitTest: %v", err)
	}
	if final.Status != store.StatusCompleted {
		t.Errorf("status = %s", final.Status)
	}
	if final.PassedTests != 2 {
		t.Errorf("passed = %d", final.PassedTests)
	}
}

func TestWaitTestTimeoutLeavesRequestAlone(t *testing.T) {
	coord, st := newTestCoordinator(t)
	ctx := context.Background()

	id, err := coord.SubmitTest(ctx, store.NewTestRequest{
		RequestType: store.TestAll,
		Platform:    store.PlatformEditMode,
	})
	if err != nil {
		t.Fatalf("SubmitTest: %v", err)
	}
	if _, err := st.ClaimNextTest(ctx); err != nil {
		t.Fatalf("ClaimNextTest: %v", err)
	}

	start := time.Now()
	_, err = coord.WaitTest(ctx, id, 60*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("wait returned after %s, far past the timeout", elapsed)
	}

	req, err := st.GetTest(ctx, id)
	if err != nil {
		t.Fatalf("GetTest: %v", err)
	}
	if req.Status != store.StatusRunning {
		t.Fatalf("timeout changed status to %s", req.Status)
	}
}

func TestWaitTestCancelledIsTerminalNotTimeout(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	id, err := coord.SubmitTest(ctx, store.NewTestRequest{
		RequestType: store.TestAll,
		Platform:    store.PlatformEditMode,
	})
	if err != nil {
		t.Fatalf("SubmitTest: %v", err)
	}
	if err := coord.CancelTest(ctx, id); err != nil {
		t.Fatalf("CancelTest: %v", err)
	}

	final, err := coord.WaitTest(ctx, id, time.Second)
	if err != nil {
		t.Fatalf("WaitTest on cancelled request: %v", err)
	}
	if final.Status != store.StatusCancelled {
		t.Errorf("status = %s", final.Status)
	}
}

func TestWaitTestMissingRequest(t *testing.T) {
	coord, _ := newTestCoordinator(t)

	_, err := coord.WaitTest(context.Background(), 9999, 100*time.Millisecond)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWaitTestContextCancellation(t *testing.T) {
	coord, _ := newTestCoordinator(t)

	id, err := coord.SubmitTest(context.Background(), store.NewTestRequest{
		RequestType: store.TestAll,
		Platform:    store.PlatformEditMode,
	})
	if err != nil {
		t.Fatalf("SubmitTest: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err = coord.WaitTest(ctx, id, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCancelTestDistinguishesMissingFromFinished(t *testing.T) {
	coord, st := newTestCoordinator(t)
	ctx := context.Background()

	if err := coord.CancelTest(ctx, 1234); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	id, err := coord.SubmitTest(ctx, store.NewTestRequest{
		RequestType: store.TestAll,
		Platform:    store.PlatformEditMode,
	})
	if err != nil {
		t.Fatalf("SubmitTest: %v", err)
	}
	if _, err := st.ClaimNextTest(ctx); err != nil {
		t.Fatalf("ClaimNextTest: %v", err)
	}
	if _, err := st.CompleteTest(ctx, id, store.TestOutcome{}); err != nil {
		t.Fatalf("CompleteTest: %v", err)
	}

	err = coord.CancelTest(ctx, id)
	if err == nil {
		t.Fatal("expected error cancelling a finished request")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("finished request misreported as missing")
	}
}

func TestWaitRefresh(t *testing.T) {
	coord, st := newTestCoordinator(t)
	ctx := context.Background()

	id, err := coord.SubmitRefresh(ctx, store.NewRefreshRequest{
		RefreshType:   store.RefreshFull,
		ImportOptions: store.ImportDefault,
	})
	if err != nil {
		t.Fatalf("SubmitRefresh: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		if _, err := st.ClaimNextRefresh(ctx); err != nil {
			return
		}
		st.CompleteRefresh(ctx, id, store.RefreshOutcome{Message: "refreshed"})
	}()

	final, err := coord.WaitRefresh(ctx, id, 2*time.Second)
	if err != nil {
		t.Fatalf("WaitRefresh: %v", err)
	}
	if final.Status != store.StatusCompleted {
		t.Errorf("status = %s", final.Status)
	}
	if final.ResultMessage != "refreshed" {
		t.Errorf("result = %q", final.ResultMessage)
	}
}
