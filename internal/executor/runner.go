// Package executor contains the host-side pull loop that claims queued
// requests from the shared store and executes them through a Handler.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"testplane/internal/observability"
	"testplane/internal/store"
)

// Config holds configuration for the executor runner.
type Config struct {
	PollInterval time.Duration // base poll cadence (default: 1s)
	MaxBackoff   time.Duration // maximum backoff when the queue is empty (default: 30s)
	RunTimeout   time.Duration // per-request execution budget (default: 30m)
}

// Store is the slice of the persistence layer the runner needs.
type Store interface {
	store.TestRequestStore
	store.RefreshRequestStore
	store.TestResultStore
	store.ExecutionLogStore
	store.StatusStore
}

// Runner is the executor's main pull loop. Work is processed one request at
// a time; the host application cannot run two test batches concurrently.
type Runner struct {
	id      string
	repo    Store
	handler Handler
	log     *slog.Logger
	config  Config
	metrics observability.ExecutorMetrics
	done    chan struct{}
}

// New creates a runner with a fresh instance id.
func New(repo Store, handler Handler, log *slog.Logger, config Config) *Runner {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 30 * time.Minute
	}
	id := uuid.NewString()
	return &Runner{
		id:      id,
		repo:    repo,
		handler: handler,
		log:     log.With("runner_id", id),
		config:  config,
		metrics: observability.NewExecutorMetrics(),
		done:    make(chan struct{}),
	}
}

// ID returns the runner's instance id.
func (r *Runner) ID() string {
	return r.id
}

// Run starts the pull loop. It blocks until the context is cancelled; an
// in-flight request is allowed to finish before Run returns. The backoff
// grows while the queue stays empty and resets the moment work appears.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("executor runner starting", "poll_interval", r.config.PollInterval)

	if err := r.repo.UpsertStatus(ctx, store.ComponentExecutor, store.ComponentOnline,
		fmt.Sprintf("Runner %s online", r.id)); err != nil {
		r.log.Warn("failed to record executor online", "error", err)
	}

	currentBackoff := r.config.PollInterval
	for {
		select {
		case <-ctx.Done():
			r.log.Info("context cancelled, executor runner stopping")
			r.markOffline()
			close(r.done)
			return ctx.Err()

		case <-time.After(currentBackoff):
			worked, err := r.pollOnce(ctx)
			if err != nil {
				r.log.Error("poll failed", "error", err)
				continue
			}
			if worked {
				currentBackoff = r.config.PollInterval
				continue
			}
			currentBackoff = currentBackoff * 2
			if currentBackoff > r.config.MaxBackoff {
				currentBackoff = r.config.MaxBackoff
			}
		}
	}
}

// Done returns a channel closed once the runner has fully stopped.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// pollOnce claims and processes at most one request. Test requests take
// precedence over asset refreshes.
func (r *Runner) pollOnce(ctx context.Context) (bool, error) {
	test, err := r.repo.ClaimNextTest(ctx)
	if err != nil {
		return false, err
	}
	if test != nil {
		r.metrics.Claims.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "test")))
		r.processTest(ctx, *test)
		return true, nil
	}

	refresh, err := r.repo.ClaimNextRefresh(ctx)
	if err != nil {
		return false, err
	}
	if refresh != nil {
		r.metrics.Claims.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "refresh")))
		r.processRefresh(ctx, *refresh)
		return true, nil
	}
	return false, nil
}

func (r *Runner) processTest(ctx context.Context, req store.TestRequest) {
	tracer := otel.Tracer("executor-runner")
	spanCtx, span := tracer.Start(ctx, "run_tests",
		trace.WithAttributes(
			attribute.Int64("request.id", req.ID),
			attribute.String("request.type", string(req.RequestType)),
			attribute.String("request.platform", string(req.Platform)),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	log := r.log.With("request_id", req.ID)
	log.Info("processing test request", "request_type", req.RequestType, "test_filter", req.TestFilter)
	r.trail(ctx, req.ID, store.ExecInfo, fmt.Sprintf("Executing %s tests", req.RequestType))

	// Detach the execution budget from the poll context: a shutdown must
	// not abort the in-flight run, only RunTimeout bounds it. The span
	// stays attached.
	execCtx, cancel := context.WithTimeout(context.WithoutCancel(spanCtx), r.config.RunTimeout)
	defer cancel()

	outcome, results, err := r.handler.RunTests(execCtx, req)
	if err != nil {
		span.RecordError(err)
		log.Error("test execution failed", "error", err)
		r.failTest(req.ID, err.Error())
		r.completions("test", "failed")
		return
	}

	span.SetAttributes(
		attribute.Int("tests.total", outcome.Total),
		attribute.Int("tests.failed", outcome.Failed),
	)

	// Completion is conditional: a cancel that landed mid-run wins, and
	// the outcome of the cancelled run is discarded.
	ok, err := r.repo.CompleteTest(context.Background(), req.ID, outcome)
	if err != nil {
		log.Error("failed to record test completion", "error", err)
		return
	}
	if !ok {
		log.Info("request no longer running, outcome discarded")
		r.completions("test", "discarded")
		return
	}
	r.completions("test", "completed")

	if err := r.repo.AddTestResults(context.Background(), req.ID, results); err != nil {
		log.Error("failed to record test results", "error", err)
	}
	r.trail(context.Background(), req.ID, store.ExecInfo,
		fmt.Sprintf("Completed: %d passed, %d failed, %d skipped", outcome.Passed, outcome.Failed, outcome.Skipped))
	log.Info("test request completed",
		"total", outcome.Total, "passed", outcome.Passed, "failed", outcome.Failed)
}

func (r *Runner) processRefresh(ctx context.Context, req store.RefreshRequest) {
	tracer := otel.Tracer("executor-runner")
	spanCtx, span := tracer.Start(ctx, "refresh_assets",
		trace.WithAttributes(
			attribute.Int64("request.id", req.ID),
			attribute.String("refresh.type", string(req.RefreshType)),
			attribute.Int("refresh.paths", len(req.Paths)),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	log := r.log.With("request_id", req.ID)
	log.Info("processing refresh request", "refresh_type", req.RefreshType)

	execCtx, cancel := context.WithTimeout(context.WithoutCancel(spanCtx), r.config.RunTimeout)
	defer cancel()

	outcome, err := r.handler.RefreshAssets(execCtx, req)
	if err != nil {
		span.RecordError(err)
		log.Error("asset refresh failed", "error", err)
		if _, ferr := r.repo.FailRefresh(context.Background(), req.ID, err.Error()); ferr != nil {
			log.Error("failed to record refresh failure", "error", ferr)
		}
		r.completions("refresh", "failed")
		return
	}

	ok, err := r.repo.CompleteRefresh(context.Background(), req.ID, outcome)
	if err != nil {
		log.Error("failed to record refresh completion", "error", err)
		return
	}
	if !ok {
		log.Info("request no longer running, outcome discarded")
		r.completions("refresh", "discarded")
		return
	}
	r.completions("refresh", "completed")
	log.Info("refresh request completed", "duration", outcome.Duration)
}

func (r *Runner) failTest(id int64, msg string) {
	if _, err := r.repo.FailTest(context.Background(), id, msg); err != nil {
		r.log.Error("failed to record test failure", "request_id", id, "error", err)
	}
	r.trail(context.Background(), id, store.ExecError, msg)
}

// trail writes a diagnostic entry; trail failures are logged, never fatal.
func (r *Runner) trail(ctx context.Context, requestID int64, level store.ExecLogLevel, msg string) {
	entry := &store.ExecutionLogEntry{
		RequestID: &requestID,
		Level:     level,
		Message:   msg,
		Source:    "executor",
	}
	if err := r.repo.AppendExecutionLog(ctx, entry); err != nil {
		r.log.Debug("failed to append execution log", "error", err)
		return
	}
	r.metrics.LogAppends.Add(ctx, 1)
}

func (r *Runner) completions(kind, result string) {
	r.metrics.Completions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", kind), attribute.String("result", result)))
}

func (r *Runner) markOffline() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.repo.UpsertStatus(ctx, store.ComponentExecutor, store.ComponentOffline,
		fmt.Sprintf("Runner %s stopped", r.id)); err != nil {
		r.log.Warn("failed to record executor offline", "error", err)
	}
}
