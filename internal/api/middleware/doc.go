// Package middleware provides HTTP middleware for the collector API.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing for dashboard clients
//   - RateLimit: Per-IP token bucket rate limiting with stale-client sweep
//   - GlobalRateLimit: Single shared bucket across all clients
//
// Rate Limiting:
//   - Per-IP tracking keyed on the client address
//   - Token bucket via golang.org/x/time/rate
//   - Configurable RPS and burst capacity
//   - Clients idle past the TTL are swept to bound memory
//
// Agents that exceed the rate limit receive 429 and are expected to
// buffer locally and retry on their next reporting interval.
package middleware
