package sqlite

import (
	"context"
	"testing"
	"time"

	"testplane/internal/store"
)

func submitTest(t *testing.T, st *Store, req store.NewTestRequest) int64 {
	t.Helper()
	id, err := st.SubmitTest(context.Background(), req)
	if err != nil {
		t.Fatalf("SubmitTest: %v", err)
	}
	return id
}

func TestSubmitAndGetTest(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id := submitTest(t, st, store.NewTestRequest{
		RequestType: store.TestClass,
		TestFilter:  "MyGame.Tests.PlayerTests",
		Platform:    store.PlatformPlayMode,
		Priority:    3,
	})

	req, err := st.GetTest(ctx, id)
	if err != nil {
		t.Fatalf("GetTest: %v", err)
	}
	if req == nil {
		t.Fatal("expected request")
	}
	if req.Status != store.StatusPending {
		t.Errorf("status = %s, want pending", req.Status)
	}
	if req.TestFilter != "MyGame.Tests.PlayerTests" {
		t.Errorf("filter = %q", req.TestFilter)
	}
	if req.Priority != 3 {
		t.Errorf("priority = %d, want 3", req.Priority)
	}
	if req.StartedAt != nil || req.CompletedAt != nil {
		t.Error("timestamps should be unset on a pending request")
	}
}

func TestGetTestAbsentReturnsNil(t *testing.T) {
	st := newTestStore(t)

	req, err := st.GetTest(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetTest: %v", err)
	}
	if req != nil {
		t.Fatal("expected nil for absent id")
	}
}

func TestSubmitTestValidation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	cases := []store.NewTestRequest{
		{RequestType: "bogus", Platform: store.PlatformEditMode},
		{RequestType: store.TestAll, Platform: "Wrong"},
		{RequestType: store.TestClass, Platform: store.PlatformEditMode}, // missing filter
	}
	for _, req := range cases {
		if _, err := st.SubmitTest(ctx, req); err == nil {
			t.Errorf("expected validation error for %+v", req)
		}
	}
}

func TestSubmitTestWritesExecutionTrail(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode})

	entries, err := st.ListExecutionLog(ctx, &id, 10)
	if err != nil {
		t.Fatalf("ListExecutionLog: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 trail entry, got %d", len(entries))
	}
	if entries[0].Level != store.ExecInfo {
		t.Errorf("level = %s, want INFO", entries[0].Level)
	}
}

func TestListPendingTestsOrdering(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	low := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode, Priority: 0})
	high := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode, Priority: 5})
	mid := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode, Priority: 2})

	pending, err := st.ListPendingTests(ctx)
	if err != nil {
		t.Fatalf("ListPendingTests: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending, got %d", len(pending))
	}
	got := []int64{pending[0].ID, pending[1].ID, pending[2].ID}
	want := []int64{high, mid, low}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("claim order = %v, want %v", got, want)
		}
	}
}

func TestClaimNextTestHonorsPriorityThenAge(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode, Priority: 1})
	second := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode, Priority: 1})
	urgent := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode, Priority: 9})

	for _, want := range []int64{urgent, first, second} {
		claimed, err := st.ClaimNextTest(ctx)
		if err != nil {
			t.Fatalf("ClaimNextTest: %v", err)
		}
		if claimed == nil {
			t.Fatal("expected a claim")
		}
		if claimed.ID != want {
			t.Fatalf("claimed %d, want %d", claimed.ID, want)
		}
		if claimed.Status != store.StatusRunning {
			t.Errorf("claimed status = %s, want running", claimed.Status)
		}
		if claimed.StartedAt == nil {
			t.Error("started_at not set on claim")
		}
	}

	empty, err := st.ClaimNextTest(ctx)
	if err != nil {
		t.Fatalf("ClaimNextTest on empty queue: %v", err)
	}
	if empty != nil {
		t.Fatal("expected nil on empty queue")
	}
}

func TestCompleteTestWritesOutcome(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode})
	if _, err := st.ClaimNextTest(ctx); err != nil {
		t.Fatalf("ClaimNextTest: %v", err)
	}

	ok, err := st.CompleteTest(ctx, id, store.TestOutcome{
		Summary:  "5 tests, all passed",
		Total:    5,
		Passed:   5,
		Duration: 2500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("CompleteTest: %v", err)
	}
	if !ok {
		t.Fatal("expected completion to apply")
	}

	req, err := st.GetTest(ctx, id)
	if err != nil {
		t.Fatalf("GetTest: %v", err)
	}
	if req.Status != store.StatusCompleted {
		t.Errorf("status = %s", req.Status)
	}
	if req.TotalTests != 5 || req.PassedTests != 5 {
		t.Errorf("counts = %d/%d", req.TotalTests, req.PassedTests)
	}
	if req.DurationSeconds != 2.5 {
		t.Errorf("duration = %v", req.DurationSeconds)
	}
	if req.CompletedAt == nil {
		t.Error("completed_at not set")
	}
}

func TestCompleteRequiresRunning(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode})

	// Still pending: completion must not apply.
	ok, err := st.CompleteTest(ctx, id, store.TestOutcome{})
	if err != nil {
		t.Fatalf("CompleteTest: %v", err)
	}
	if ok {
		t.Fatal("completion applied to a pending request")
	}
}

func TestCancelPendingTest(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode})

	ok, err := st.CancelTest(ctx, id)
	if err != nil {
		t.Fatalf("CancelTest: %v", err)
	}
	if !ok {
		t.Fatal("expected cancel to apply")
	}

	req, _ := st.GetTest(ctx, id)
	if req.Status != store.StatusCancelled {
		t.Errorf("status = %s", req.Status)
	}
	if req.ErrorMessage != "Cancelled by user" {
		t.Errorf("error_message = %q", req.ErrorMessage)
	}
	if req.CompletedAt == nil {
		t.Error("completed_at not set on cancel")
	}
}

func TestCancelLosesToCompletion(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode})
	if _, err := st.ClaimNextTest(ctx); err != nil {
		t.Fatalf("ClaimNextTest: %v", err)
	}
	if _, err := st.CompleteTest(ctx, id, store.TestOutcome{Total: 1, Passed: 1}); err != nil {
		t.Fatalf("CompleteTest: %v", err)
	}

	ok, err := st.CancelTest(ctx, id)
	if err != nil {
		t.Fatalf("CancelTest: %v", err)
	}
	if ok {
		t.Fatal("cancel applied to a completed request")
	}

	req, _ := st.GetTest(ctx, id)
	if req.Status != store.StatusCompleted {
		t.Errorf("terminal status changed to %s", req.Status)
	}
	if req.ErrorMessage != "" {
		t.Errorf("completed request gained error message %q", req.ErrorMessage)
	}
}

func TestCompletionLosesToCancel(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode})
	if _, err := st.ClaimNextTest(ctx); err != nil {
		t.Fatalf("ClaimNextTest: %v", err)
	}
	if _, err := st.CancelTest(ctx, id); err != nil {
		t.Fatalf("CancelTest: %v", err)
	}

	ok, err := st.CompleteTest(ctx, id, store.TestOutcome{Total: 1, Passed: 1})
	if err != nil {
		t.Fatalf("CompleteTest: %v", err)
	}
	if ok {
		t.Fatal("completion applied to a cancelled request")
	}

	req, _ := st.GetTest(ctx, id)
	if req.Status != store.StatusCancelled {
		t.Errorf("status = %s, want cancelled", req.Status)
	}
	if req.TotalTests != 0 {
		t.Error("outcome of a cancelled run leaked into the row")
	}
}

func TestFailTest(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode})
	if _, err := st.ClaimNextTest(ctx); err != nil {
		t.Fatalf("ClaimNextTest: %v", err)
	}

	ok, err := st.FailTest(ctx, id, "compile error in test assembly")
	if err != nil {
		t.Fatalf("FailTest: %v", err)
	}
	if !ok {
		t.Fatal("expected failure to apply")
	}

	req, _ := st.GetTest(ctx, id)
	if req.Status != store.StatusFailed {
		t.Errorf("status = %s", req.Status)
	}
	if req.ErrorMessage != "compile error in test assembly" {
		t.Errorf("error_message = %q", req.ErrorMessage)
	}
}

func TestListTestsFiltersByStatus(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode})
	cancelled := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode})
	if _, err := st.CancelTest(ctx, cancelled); err != nil {
		t.Fatalf("CancelTest: %v", err)
	}

	got, err := st.ListTests(ctx, store.StatusCancelled, 10)
	if err != nil {
		t.Fatalf("ListTests: %v", err)
	}
	if len(got) != 1 || got[0].ID != cancelled {
		t.Fatalf("expected only the cancelled request, got %+v", got)
	}

	all, err := st.ListTests(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListTests: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(all))
	}
}

func TestDeleteTestCascades(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode})
	if _, err := st.ClaimNextTest(ctx); err != nil {
		t.Fatalf("ClaimNextTest: %v", err)
	}
	if _, err := st.CompleteTest(ctx, id, store.TestOutcome{Total: 1, Passed: 1}); err != nil {
		t.Fatalf("CompleteTest: %v", err)
	}
	if err := st.AddTestResults(ctx, id, []store.TestResult{{TestName: "T", Result: store.ResultPassed}}); err != nil {
		t.Fatalf("AddTestResults: %v", err)
	}

	deleted, err := st.DeleteTest(ctx, id)
	if err != nil {
		t.Fatalf("DeleteTest: %v", err)
	}
	if !deleted {
		t.Fatal("expected delete to apply")
	}

	results, err := st.ListTestResults(ctx, id)
	if err != nil {
		t.Fatalf("ListTestResults: %v", err)
	}
	if len(results) != 0 {
		t.Fatal("child results survived the delete")
	}
	trail, err := st.ListExecutionLog(ctx, &id, 10)
	if err != nil {
		t.Fatalf("ListExecutionLog: %v", err)
	}
	if len(trail) != 0 {
		t.Fatal("child trail entries survived the delete")
	}
}
