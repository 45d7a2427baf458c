// Package main is the entry point for the testplane executor.
// The executor is the host-side agent: it claims queued requests from the
// shared database, runs them through a Handler, and writes outcomes back.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"testplane/internal/config"
	"testplane/internal/executor"
	"testplane/internal/heartbeat"
	"testplane/internal/logger"
	"testplane/internal/observability"
	"testplane/internal/store"
	"testplane/internal/store/sqlite"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing
	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.Init(ctx, "testplane-executor", cfg.OTLPEndpoint)
		if err != nil {
			log.Error("failed to init tracing", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				log.Warn("failed to shutdown tracer", "error", err)
			}
		}()
	}

	st, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Initialize(ctx); err != nil {
		log.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	// The stub handler stands in until a host application integration is
	// wired up behind the Handler interface.
	runner := executor.New(st, executor.StubHandler{Delay: 100 * time.Millisecond}, log, executor.Config{
		PollInterval: cfg.PollInterval,
	})

	beats := heartbeat.New(st, store.ComponentExecutor, "Executor process", log)
	go beats.Run(ctx, cfg.HeartbeatInterval)

	log.Info("executor started", "db", cfg.DatabasePath, "runner_id", runner.ID())
	go runner.Run(ctx)

	// Retention sweep for captured console output.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := st.PruneConsoleLogs(ctx, cfg.LogRetention)
				if err != nil {
					log.Warn("console log prune failed", "error", err)
					continue
				}
				if removed > 0 {
					log.Info("pruned console logs", "removed", removed)
				}
			}
		}
	}()

	// Metrics
	if cfg.MetricsAddr != "" {
		metricsHandler, shutdownMetrics, err := observability.InitMetrics()
		if err != nil {
			log.Error("failed to init metrics", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := shutdownMetrics(context.Background()); err != nil {
				log.Warn("failed to shutdown metrics", "error", err)
			}
		}()

		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metricsHandler)
			log.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Warn("metrics server error", "error", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down executor")
	cancel()

	<-runner.Done()
}
