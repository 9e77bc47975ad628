// Package config loads runtime settings from LOOM_* environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment-driven settings for the local runner and the
// default logger.
type Config struct {
	// Debug switches logging to the human-readable colored handler.
	Debug bool `env:"LOOM_DEBUG" envDefault:"false"`
	// ServiceName and ServiceVersion identify this process in exported
	// telemetry.
	ServiceName    string `env:"LOOM_SERVICE_NAME" envDefault:"loom"`
	ServiceVersion string `env:"LOOM_SERVICE_VERSION" envDefault:"dev"`
	// QueueCapacity bounds the local runner's task queue.
	QueueCapacity int `env:"LOOM_QUEUE_CAPACITY" envDefault:"1024"`
	// Workers is the local runner's default worker count.
	Workers int `env:"LOOM_WORKERS" envDefault:"2"`
	// OTLPLogs enables the OTLP log exporter alongside stdout logging.
	OTLPLogs bool `env:"LOOM_OTLP_LOGS" envDefault:"false"`
}

// Default returns the settings used when the environment is absent or
// unparsable.
func Default() Config {
	return Config{
		ServiceName:    "loom",
		ServiceVersion: "dev",
		QueueCapacity:  1024,
		Workers:        2,
	}
}

// Load reads the environment. Non-positive sizes are normalized to their
// defaults rather than rejected.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	return cfg, nil
}
