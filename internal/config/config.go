package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/fleetsight/collector/internal/resilience"
	"github.com/fleetsight/collector/internal/retry"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Sink      SinkConfig
	Forward   ForwardConfig
	Breaker   BreakerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// DatabaseConfig holds telemetry storage configuration.
// An empty path selects the in-memory store.
type DatabaseConfig struct {
	Path string `envconfig:"DB_PATH" default:"collector.db"`
}

// SinkConfig holds upstream sink configuration.
// An empty URL disables forwarding entirely.
type SinkConfig struct {
	URL            string        `envconfig:"SINK_URL" default:""`
	Timeout        time.Duration `envconfig:"SINK_TIMEOUT" default:"10s"`
	HealthInterval time.Duration `envconfig:"SINK_HEALTH_INTERVAL" default:"30s"`
}

// ForwardConfig holds retry and dispatch configuration for the
// forwarding pipeline.
type ForwardConfig struct {
	MaxAttempts   int           `envconfig:"FORWARD_MAX_ATTEMPTS" default:"4"`
	InitialDelay  time.Duration `envconfig:"FORWARD_INITIAL_DELAY" default:"250ms"`
	MaxDelay      time.Duration `envconfig:"FORWARD_MAX_DELAY" default:"10s"`
	BackoffFactor float64       `envconfig:"FORWARD_BACKOFF_FACTOR" default:"2.0"`
	QueueSize     int           `envconfig:"FORWARD_QUEUE_SIZE" default:"256"`
	Workers       int           `envconfig:"FORWARD_WORKERS" default:"4"`
}

// BreakerConfig holds circuit breaker configuration for the sink.
type BreakerConfig struct {
	MaxFailures    int           `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	OpenTimeout    time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" default:"30s"`
	HalfOpenProbes int           `envconfig:"BREAKER_HALF_OPEN_PROBES" default:"2"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// RetryPolicy returns the retry policy described by the Forward section.
// The sink timeout bounds each delivery attempt.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:      c.Forward.MaxAttempts,
		InitialDelay:     c.Forward.InitialDelay,
		MaxDelay:         c.Forward.MaxDelay,
		BackoffFactor:    c.Forward.BackoffFactor,
		OperationTimeout: c.Sink.Timeout,
	}
}

// BreakerConfig returns the circuit breaker configuration described by
// the Breaker section. The caller attaches its own state change callback.
func (c *Config) BreakerConfig() resilience.Config {
	return resilience.Config{
		MaxFailures:       c.Breaker.MaxFailures,
		OpenTimeout:       c.Breaker.OpenTimeout,
		MaxHalfOpenProbes: c.Breaker.HalfOpenProbes,
	}
}

// Load loads configuration from environment variables. The forwarding
// retry schedule is validated here so a bad deployment fails at startup
// rather than on the first delivery.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.RetryPolicy().Validate(); err != nil {
		return nil, fmt.Errorf("invalid forward config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Database: DatabaseConfig{
			Path: "collector.db",
		},
		Sink: SinkConfig{
			URL:            "",
			Timeout:        10 * time.Second,
			HealthInterval: 30 * time.Second,
		},
		Forward: ForwardConfig{
			MaxAttempts:   4,
			InitialDelay:  250 * time.Millisecond,
			MaxDelay:      10 * time.Second,
			BackoffFactor: 2.0,
			QueueSize:     256,
			Workers:       4,
		},
		Breaker: BreakerConfig{
			MaxFailures:    5,
			OpenTimeout:    30 * time.Second,
			HalfOpenProbes: 2,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
