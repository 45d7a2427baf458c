// Package config handles environment variable loading for the database path,
// poll intervals, and observability endpoints.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all configuration values for the application.
type Config struct {
	// Path to the shared coordination database file
	DatabasePath string

	// Executor poll interval for new work
	PollInterval time.Duration

	// Default timeout when waiting for a request to finish
	WaitTimeout time.Duration

	// Heartbeat write interval
	HeartbeatInterval time.Duration

	// Console logs older than this are eligible for pruning
	LogRetention time.Duration

	// Listen address for the Prometheus /metrics endpoint; empty disables it
	MetricsAddr string

	// OTLP collector endpoint for traces; empty disables tracing
	OTLPEndpoint string
}

// Load reads configuration from environment variables, falling back to
// defaults that match a local single-machine setup.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:      "test_coordination.db",
		PollInterval:      time.Second,
		WaitTimeout:       5 * time.Minute,
		HeartbeatInterval: 30 * time.Second,
		LogRetention:      7 * 24 * time.Hour,
		MetricsAddr:       "",
		OTLPEndpoint:      os.Getenv("TESTPLANE_OTLP_ENDPOINT"),
	}

	if v := os.Getenv("TESTPLANE_DB"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("TESTPLANE_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"TESTPLANE_POLL_INTERVAL", &cfg.PollInterval},
		{"TESTPLANE_WAIT_TIMEOUT", &cfg.WaitTimeout},
		{"TESTPLANE_HEARTBEAT_INTERVAL", &cfg.HeartbeatInterval},
		{"TESTPLANE_LOG_RETENTION", &cfg.LogRetention},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.env, err)
		}
		*d.dst = parsed
	}

	return cfg, nil
}
