// Package server provides HTTP server setup and initialization for the
// telemetry collector.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (CORS, rate limiting, recovery, metrics)
//   - Telemetry storage (SQLite or in-memory)
//   - Forwarding pipeline (sink client, retry engine, circuit breaker,
//     dispatcher queue)
//   - Live stream hub and sink health probe
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Open the telemetry store
//  4. Wire breaker, retry engine, and dispatcher around the sink client
//  5. Setup HTTP routes and middleware
//  6. Start background goroutines and the HTTP server
//  7. Graceful shutdown on signal: listener first, then queue drain,
//     then the store
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(cfg, logger)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
