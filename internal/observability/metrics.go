// Package observability provides OpenTelemetry instrumentation for tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
// The shutdown function should be called on application exit for graceful cleanup.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// CoordinatorMetrics are the controller-side instruments: one counter per
// submitted request and a histogram of how long completion waits ran.
type CoordinatorMetrics struct {
	Submissions  metric.Int64Counter
	WaitDuration metric.Float64Histogram
}

// NewCoordinatorMetrics builds the controller-side instruments against the
// global meter provider. Safe to call before InitMetrics; the global meter
// delegates once a provider is registered.
func NewCoordinatorMetrics() CoordinatorMetrics {
	m := otel.Meter("testplane-coordinator")
	return CoordinatorMetrics{
		Submissions:  int64Counter(m, "testplane_requests_submitted", "Work requests submitted, by kind."),
		WaitDuration: float64Histogram(m, "testplane_wait_duration", "Time spent waiting for a request to reach a terminal status, by kind and outcome."),
	}
}

// ExecutorMetrics are the host-side instruments: claims and completions per
// request kind, plus diagnostic trail appends.
type ExecutorMetrics struct {
	Claims      metric.Int64Counter
	Completions metric.Int64Counter
	LogAppends  metric.Int64Counter
}

// NewExecutorMetrics builds the host-side instruments against the global
// meter provider.
func NewExecutorMetrics() ExecutorMetrics {
	m := otel.Meter("testplane-executor")
	return ExecutorMetrics{
		Claims:      int64Counter(m, "testplane_requests_claimed", "Requests claimed for execution, by kind."),
		Completions: int64Counter(m, "testplane_requests_completed", "Requests the executor finished, by kind and result."),
		LogAppends:  int64Counter(m, "testplane_log_appends", "Diagnostic trail entries written by the executor."),
	}
}

// Instrument construction against the global meter only fails on malformed
// names; fall back to no-op instruments rather than making callers carry an
// error path for metrics.
func int64Counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		c, _ = noop.NewMeterProvider().Meter("").Int64Counter(name)
	}
	return c
}

func float64Histogram(m metric.Meter, name, desc string) metric.Float64Histogram {
	h, err := m.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	if err != nil {
		h, _ = noop.NewMeterProvider().Meter("").Float64Histogram(name)
	}
	return h
}
