package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"testplane/internal/store"
)

// waitForTerminal polls get until the observed request reaches a terminal
// status. It returns ErrWaitTimeout once the deadline passes, ErrNotFound if
// the row disappears, and the context error if the caller gives up. Status
// changes are logged once per change, not once per poll.
func waitForTerminal[T any](
	ctx context.Context,
	log *slog.Logger,
	timeout, poll time.Duration,
	get func(context.Context) (*T, store.RequestStatus, error),
) (*T, error) {
	deadline := time.Now().Add(timeout)
	var lastStatus store.RequestStatus

	for {
		snapshot, status, err := get(ctx)
		if err != nil {
			return nil, err
		}
		if snapshot == nil {
			return nil, ErrNotFound
		}
		if status != lastStatus {
			log.Info("request status", "status", status)
			lastStatus = status
		}
		if status.Terminal() {
			return snapshot, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w after %s (last status %s)", ErrWaitTimeout, timeout, status)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(poll):
		}
	}
}
