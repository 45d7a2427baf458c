// Package logs provides read-side access to the captured host console:
// filtering, session summaries, live following, pruning, and export.
package logs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"testplane/internal/store"
)

// Reader exposes console log queries over the shared store.
type Reader struct {
	store store.ConsoleLogStore
	log   *slog.Logger
}

// NewReader creates a reader over the given console log store.
func NewReader(st store.ConsoleLogStore, log *slog.Logger) *Reader {
	return &Reader{store: st, log: log}
}

// Latest returns recent entries matching the filter, newest first.
func (r *Reader) Latest(ctx context.Context, filter store.ConsoleLogFilter) ([]store.ConsoleLogEntry, error) {
	return r.store.QueryConsoleLogs(ctx, filter)
}

// Errors returns recent error-level entries, optionally widened to
// exceptions and asserts.
func (r *Reader) Errors(ctx context.Context, limit int, includeExceptions bool) ([]store.ConsoleLogEntry, error) {
	return r.store.ListErrorLogs(ctx, limit, includeExceptions)
}

// Summary aggregates one session; empty sessionID means the most recent.
func (r *Reader) Summary(ctx context.Context, sessionID string) (*store.SessionSummary, error) {
	return r.store.SessionSummary(ctx, sessionID)
}

// Sessions lists recent sessions, most recently active first.
func (r *Reader) Sessions(ctx context.Context, limit int) ([]store.SessionInfo, error) {
	return r.store.ListSessions(ctx, limit)
}

// Prune removes entries older than the retention window and reports how
// many were deleted.
func (r *Reader) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	removed, err := r.store.PruneConsoleLogs(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		r.log.Info("pruned console logs", "removed", removed, "older_than", olderThan)
	}
	return removed, nil
}

// Follow streams new entries to w until the context is cancelled. It starts
// at the current tail, then polls by last-seen id so every new entry is
// written exactly once, in order, with no gaps.
func (r *Reader) Follow(ctx context.Context, w io.Writer, sessionID string, level store.LogLevel, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}

	// Seed from the highest id, not the newest timestamp: ids follow
	// insertion order, timestamps follow writer clocks.
	lastID, err := r.store.LastConsoleLogID(ctx, sessionID, level)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			entries, err := r.store.TailConsoleLogs(ctx, sessionID, level, lastID)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if _, err := fmt.Fprintln(w, FormatEntry(e)); err != nil {
					return err
				}
				lastID = e.ID
			}
		}
	}
}

// FormatEntry renders one entry as a single human-readable line.
func FormatEntry(e store.ConsoleLogEntry) string {
	line := fmt.Sprintf("[%s] %-9s %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Level, e.Message)
	if e.SourceFile != "" {
		line += fmt.Sprintf(" (%s:%d)", e.SourceFile, e.SourceLine)
	}
	return line
}
