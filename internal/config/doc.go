// Package config provides 12-factor configuration management for the
// telemetry collector.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Database: telemetry storage path (empty selects in-memory)
//   - Sink: upstream sink endpoint, request timeout, health probe interval
//   - Forward: retry schedule and dispatch queue sizing
//   - Breaker: circuit breaker thresholds for the sink
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, DB_PATH
//   - SINK_URL, SINK_TIMEOUT, SINK_HEALTH_INTERVAL
//   - FORWARD_MAX_ATTEMPTS, FORWARD_INITIAL_DELAY, FORWARD_MAX_DELAY,
//     FORWARD_BACKOFF_FACTOR, FORWARD_QUEUE_SIZE, FORWARD_WORKERS
//   - BREAKER_MAX_FAILURES, BREAKER_OPEN_TIMEOUT, BREAKER_HALF_OPEN_PROBES
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
