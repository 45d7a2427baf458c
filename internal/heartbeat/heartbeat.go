// Package heartbeat keeps one liveness row per component fresh in the shared
// store so each side can tell whether the other is alive without any direct
// channel between the processes.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"testplane/internal/store"
)

// Registry periodically upserts a component's liveness row.
type Registry struct {
	status    store.StatusStore
	component store.Component
	message   string
	log       *slog.Logger
}

// New creates a registry for the given component. The message is recorded
// with every beat.
func New(status store.StatusStore, component store.Component, message string, log *slog.Logger) *Registry {
	return &Registry{status: status, component: component, message: message, log: log}
}

// Beat writes one heartbeat. Failures are logged and swallowed; a missed
// beat must never take down the component it reports on.
func (r *Registry) Beat(ctx context.Context) {
	if err := r.status.UpsertStatus(ctx, r.component, store.ComponentOnline, r.message); err != nil {
		r.log.Debug("heartbeat failed", "component", r.component, "error", err)
	}
}

// Run beats immediately and then on every tick until the context is
// cancelled, finishing with an offline record.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	r.Beat(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Offline()
			return
		case <-ticker.C:
			r.Beat(ctx)
		}
	}
}

// Offline marks the component offline. Uses a fresh context because the
// caller's is usually already cancelled at shutdown.
func (r *Registry) Offline() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.status.UpsertStatus(ctx, r.component, store.ComponentOffline, r.message); err != nil {
		r.log.Debug("failed to record offline status", "component", r.component, "error", err)
	}
}

// Stale reports whether a component's last heartbeat is older than the
// threshold, meaning its "online" claim should no longer be trusted.
func Stale(s store.SystemStatus, threshold time.Duration) bool {
	return time.Since(s.LastHeartbeat) > threshold
}
