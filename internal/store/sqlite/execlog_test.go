package sqlite

import (
	"context"
	"testing"

	"testplane/internal/store"
)

func TestExecutionLogScoping(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id := submitTest(t, st, store.NewTestRequest{RequestType: store.TestAll, Platform: store.PlatformEditMode})

	if err := st.AppendExecutionLog(ctx, &store.ExecutionLogEntry{
		Level: store.ExecWarning, Message: "global notice", Source: "controller",
	}); err != nil {
		t.Fatalf("AppendExecutionLog: %v", err)
	}
	if err := st.AppendExecutionLog(ctx, &store.ExecutionLogEntry{
		RequestID: &id, Level: store.ExecError, Message: "run aborted", Source: "executor",
	}); err != nil {
		t.Fatalf("AppendExecutionLog: %v", err)
	}

	// Submit wrote one scoped entry already; ours makes two.
	scoped, err := st.ListExecutionLog(ctx, &id, 10)
	if err != nil {
		t.Fatalf("ListExecutionLog: %v", err)
	}
	if len(scoped) != 2 {
		t.Fatalf("scoped entries = %d, want 2", len(scoped))
	}

	all, err := st.ListExecutionLog(ctx, nil, 10)
	if err != nil {
		t.Fatalf("ListExecutionLog: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all entries = %d, want 3", len(all))
	}
	// Newest first.
	if all[0].Message != "run aborted" {
		t.Errorf("newest entry = %q", all[0].Message)
	}
}
