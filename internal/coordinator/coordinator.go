// Package coordinator implements the controller-side API over the shared
// store: submitting work, cancelling it, and waiting for the host-side
// executor to finish it. All coordination happens through database rows;
// there is no direct channel to the executor process.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"testplane/internal/observability"
	"testplane/internal/store"
)

var (
	// ErrNotFound reports that the referenced request does not exist (or
	// was deleted while being observed).
	ErrNotFound = errors.New("request not found")

	// ErrWaitTimeout reports that a request did not reach a terminal
	// status within the allotted wait. The request itself keeps running;
	// a timeout is not a cancellation.
	ErrWaitTimeout = errors.New("timed out waiting for request")
)

// Store is the slice of the persistence layer the coordinator needs.
type Store interface {
	store.TestRequestStore
	store.RefreshRequestStore
	store.TestResultStore
	store.ExecutionLogStore
	store.StatusStore
}

// Coordinator submits and tracks work requests on behalf of callers.
type Coordinator struct {
	store   store.Schema
	repo    Store
	log     *slog.Logger
	poll    time.Duration
	metrics observability.CoordinatorMetrics
}

// New creates a coordinator polling at the given interval while waiting.
func New(schema store.Schema, repo Store, log *slog.Logger, pollInterval time.Duration) *Coordinator {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Coordinator{
		store:   schema,
		repo:    repo,
		log:     log,
		poll:    pollInterval,
		metrics: observability.NewCoordinatorMetrics(),
	}
}

// SubmitTest queues a test request and returns its id.
func (c *Coordinator) SubmitTest(ctx context.Context, req store.NewTestRequest) (int64, error) {
	id, err := c.repo.SubmitTest(ctx, req)
	if err != nil {
		return 0, err
	}
	c.metrics.Submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "test")))
	c.log.Info("test request submitted",
		"request_id", id,
		"request_type", req.RequestType,
		"test_filter", req.TestFilter,
		"platform", req.Platform,
		"priority", req.Priority,
	)
	return id, nil
}

// SubmitRefresh queues an asset refresh request and returns its id.
func (c *Coordinator) SubmitRefresh(ctx context.Context, req store.NewRefreshRequest) (int64, error) {
	id, err := c.repo.SubmitRefresh(ctx, req)
	if err != nil {
		return 0, err
	}
	c.metrics.Submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "refresh")))
	c.log.Info("refresh request submitted",
		"request_id", id,
		"refresh_type", req.RefreshType,
		"paths", len(req.Paths),
	)
	return id, nil
}

// CancelTest cancels a pending or running test request. It distinguishes a
// missing request from one that already finished.
func (c *Coordinator) CancelTest(ctx context.Context, id int64) error {
	ok, err := c.repo.CancelTest(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		c.log.Info("test request cancelled", "request_id", id)
		return nil
	}
	req, err := c.repo.GetTest(ctx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return fmt.Errorf("test request %d: %w", id, ErrNotFound)
	}
	return fmt.Errorf("test request %d is already %s", id, req.Status)
}

// CancelRefresh cancels a pending or running refresh request.
func (c *Coordinator) CancelRefresh(ctx context.Context, id int64) error {
	ok, err := c.repo.CancelRefresh(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		c.log.Info("refresh request cancelled", "request_id", id)
		return nil
	}
	req, err := c.repo.GetRefresh(ctx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return fmt.Errorf("refresh request %d: %w", id, ErrNotFound)
	}
	return fmt.Errorf("refresh request %d is already %s", id, req.Status)
}

// WaitTest blocks until the test request reaches a terminal status, the
// timeout elapses (ErrWaitTimeout), or the context is cancelled. The final
// snapshot of the request is returned on success.
func (c *Coordinator) WaitTest(ctx context.Context, id int64, timeout time.Duration) (*store.TestRequest, error) {
	start := time.Now()
	req, err := waitForTerminal(ctx, c.log.With("request_id", id, "kind", "test"), timeout, c.poll,
		func(ctx context.Context) (*store.TestRequest, store.RequestStatus, error) {
			req, err := c.repo.GetTest(ctx, id)
			if err != nil || req == nil {
				return nil, "", err
			}
			return req, req.Status, nil
		})
	c.recordWait(ctx, "test", start, err)
	return req, err
}

// WaitRefresh blocks until the refresh request reaches a terminal status.
func (c *Coordinator) WaitRefresh(ctx context.Context, id int64, timeout time.Duration) (*store.RefreshRequest, error) {
	start := time.Now()
	req, err := waitForTerminal(ctx, c.log.With("request_id", id, "kind", "refresh"), timeout, c.poll,
		func(ctx context.Context) (*store.RefreshRequest, store.RequestStatus, error) {
			req, err := c.repo.GetRefresh(ctx, id)
			if err != nil || req == nil {
				return nil, "", err
			}
			return req, req.Status, nil
		})
	c.recordWait(ctx, "refresh", start, err)
	return req, err
}

func (c *Coordinator) recordWait(ctx context.Context, kind string, start time.Time, err error) {
	outcome := "terminal"
	switch {
	case errors.Is(err, ErrWaitTimeout):
		outcome = "timeout"
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	c.metrics.WaitDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("kind", kind), attribute.String("outcome", outcome)))
}

// RunTest submits a test request and waits for its outcome in one call.
func (c *Coordinator) RunTest(ctx context.Context, req store.NewTestRequest, timeout time.Duration) (*store.TestRequest, error) {
	id, err := c.SubmitTest(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.WaitTest(ctx, id, timeout)
}

// Initialize prepares the shared schema.
func (c *Coordinator) Initialize(ctx context.Context) error {
	return c.store.Initialize(ctx)
}

// Heartbeat records the controller as online.
func (c *Coordinator) Heartbeat(ctx context.Context) error {
	return c.repo.UpsertStatus(ctx, store.ComponentController, store.ComponentOnline, "")
}
