package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute %v: %v", args, err)
	}
	return buf.String()
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "coordination.db")
}

func TestInitAndVerify(t *testing.T) {
	db := tempDB(t)

	out := runCommand(t, "init", "--db", db)
	if !strings.Contains(out, "initialized") {
		t.Fatalf("init output: %q", out)
	}

	out = runCommand(t, "verify", "--db", db)
	if !strings.Contains(out, "Schema OK") {
		t.Fatalf("verify output: %q", out)
	}
}

func TestVerifyReportsMissingSchema(t *testing.T) {
	db := tempDB(t)

	out := runCommand(t, "verify", "--db", db)
	if !strings.Contains(out, "Missing tables") {
		t.Fatalf("verify output: %q", out)
	}
}

func TestSubmitStatusCancelFlow(t *testing.T) {
	db := tempDB(t)
	runCommand(t, "init", "--db", db)

	out := runCommand(t, "test", "--db", db, "--type", "all", "--platform", "EditMode")
	if !strings.Contains(out, "Test request 1 submitted") {
		t.Fatalf("submit output: %q", out)
	}

	out = runCommand(t, "status", "1", "--db", db)
	if !strings.Contains(out, "pending") {
		t.Fatalf("status output: %q", out)
	}

	out = runCommand(t, "cancel", "1", "--db", db)
	if !strings.Contains(out, "Request 1 cancelled") {
		t.Fatalf("cancel output: %q", out)
	}

	// Cancelling again hits the terminal state.
	out = runCommand(t, "cancel", "1", "--db", db)
	if !strings.Contains(out, "already cancelled") {
		t.Fatalf("repeat cancel output: %q", out)
	}
}

func TestSubmitRejectsInvalidType(t *testing.T) {
	db := tempDB(t)
	runCommand(t, "init", "--db", db)

	out := runCommand(t, "test", "--db", db, "--type", "bogus")
	if !strings.Contains(out, "Failed to submit") {
		t.Fatalf("expected validation failure, got: %q", out)
	}
}

func TestBeatAndSystemStatus(t *testing.T) {
	db := tempDB(t)
	runCommand(t, "init", "--db", db)

	out := runCommand(t, "beat", "Executor", "--db", db)
	if !strings.Contains(out, "Heartbeat recorded for Executor") {
		t.Fatalf("beat output: %q", out)
	}

	out = runCommand(t, "status", "--db", db)
	if !strings.Contains(out, "Executor") || !strings.Contains(out, "Database") {
		t.Fatalf("status output: %q", out)
	}
	if !strings.Contains(out, "Pending test requests") {
		t.Fatalf("status output missing queue counts: %q", out)
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	db := tempDB(t)
	runCommand(t, "init", "--db", db)

	out := runCommand(t, "reset", "--db", db)
	if !strings.Contains(out, "--yes") {
		t.Fatalf("reset without confirmation: %q", out)
	}

	out = runCommand(t, "reset", "--db", db, "--yes")
	if !strings.Contains(out, "Database reset") {
		t.Fatalf("reset output: %q", out)
	}
}
