package sqlite

import (
	"context"
	"testing"
	"time"

	"testplane/internal/store"
)

func TestSubmitRefreshRoundTripsPaths(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	paths := []string{"Assets/Scripts", "Assets/Prefabs/Player.prefab"}
	id, err := st.SubmitRefresh(ctx, store.NewRefreshRequest{
		RefreshType:   store.RefreshSelective,
		Paths:         paths,
		ImportOptions: store.ImportForceUpdate,
	})
	if err != nil {
		t.Fatalf("SubmitRefresh: %v", err)
	}

	req, err := st.GetRefresh(ctx, id)
	if err != nil {
		t.Fatalf("GetRefresh: %v", err)
	}
	if req == nil {
		t.Fatal("expected request")
	}
	if len(req.Paths) != 2 || req.Paths[0] != paths[0] || req.Paths[1] != paths[1] {
		t.Fatalf("paths = %v, want %v", req.Paths, paths)
	}
	if req.ImportOptions != store.ImportForceUpdate {
		t.Errorf("import options = %s", req.ImportOptions)
	}
}

func TestSubmitRefreshValidation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	cases := []store.NewRefreshRequest{
		{RefreshType: "partial", ImportOptions: store.ImportDefault},
		{RefreshType: store.RefreshFull, ImportOptions: "fast"},
		{RefreshType: store.RefreshSelective, ImportOptions: store.ImportDefault}, // no paths
	}
	for _, req := range cases {
		if _, err := st.SubmitRefresh(ctx, req); err == nil {
			t.Errorf("expected validation error for %+v", req)
		}
	}
}

func TestFullRefreshHasNoPaths(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, err := st.SubmitRefresh(ctx, store.NewRefreshRequest{
		RefreshType:   store.RefreshFull,
		ImportOptions: store.ImportDefault,
	})
	if err != nil {
		t.Fatalf("SubmitRefresh: %v", err)
	}

	req, err := st.GetRefresh(ctx, id)
	if err != nil {
		t.Fatalf("GetRefresh: %v", err)
	}
	if len(req.Paths) != 0 {
		t.Fatalf("expected no paths, got %v", req.Paths)
	}
}

func TestRefreshLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, err := st.SubmitRefresh(ctx, store.NewRefreshRequest{
		RefreshType:   store.RefreshFull,
		ImportOptions: store.ImportSynchronous,
	})
	if err != nil {
		t.Fatalf("SubmitRefresh: %v", err)
	}

	claimed, err := st.ClaimNextRefresh(ctx)
	if err != nil {
		t.Fatalf("ClaimNextRefresh: %v", err)
	}
	if claimed == nil || claimed.ID != id {
		t.Fatalf("claimed %+v, want id %d", claimed, id)
	}
	if claimed.Status != store.StatusRunning {
		t.Errorf("status = %s", claimed.Status)
	}

	ok, err := st.CompleteRefresh(ctx, id, store.RefreshOutcome{
		Message:  "Refresh completed",
		Duration: 1200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("CompleteRefresh: %v", err)
	}
	if !ok {
		t.Fatal("expected completion to apply")
	}

	req, _ := st.GetRefresh(ctx, id)
	if req.Status != store.StatusCompleted {
		t.Errorf("status = %s", req.Status)
	}
	if req.ResultMessage != "Refresh completed" {
		t.Errorf("result = %q", req.ResultMessage)
	}
	if req.DurationSeconds != 1.2 {
		t.Errorf("duration = %v", req.DurationSeconds)
	}
}

func TestCancelRefreshDoesNotSetUserMessage(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, err := st.SubmitRefresh(ctx, store.NewRefreshRequest{
		RefreshType:   store.RefreshFull,
		ImportOptions: store.ImportDefault,
	})
	if err != nil {
		t.Fatalf("SubmitRefresh: %v", err)
	}

	ok, err := st.CancelRefresh(ctx, id)
	if err != nil {
		t.Fatalf("CancelRefresh: %v", err)
	}
	if !ok {
		t.Fatal("expected cancel to apply")
	}

	req, _ := st.GetRefresh(ctx, id)
	if req.Status != store.StatusCancelled {
		t.Errorf("status = %s", req.Status)
	}
	if req.ErrorMessage != "" {
		t.Errorf("refresh cancel wrote error message %q", req.ErrorMessage)
	}
}

func TestRefreshCancelVsCompleteRace(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, err := st.SubmitRefresh(ctx, store.NewRefreshRequest{
		RefreshType:   store.RefreshFull,
		ImportOptions: store.ImportDefault,
	})
	if err != nil {
		t.Fatalf("SubmitRefresh: %v", err)
	}
	if _, err := st.ClaimNextRefresh(ctx); err != nil {
		t.Fatalf("ClaimNextRefresh: %v", err)
	}

	cancelled, err := st.CancelRefresh(ctx, id)
	if err != nil {
		t.Fatalf("CancelRefresh: %v", err)
	}
	completed, err := st.CompleteRefresh(ctx, id, store.RefreshOutcome{Message: "done"})
	if err != nil {
		t.Fatalf("CompleteRefresh: %v", err)
	}

	if !cancelled || completed {
		t.Fatalf("expected exactly one winner: cancelled=%v completed=%v", cancelled, completed)
	}
}
