// Package api provides HTTP handlers and routing for the collector REST API.
//
// This package implements all HTTP endpoints using the Gin framework:
// device registration, telemetry ingestion, dashboard reads, the live
// stream upgrade, and breaker administration.
//
// Endpoints:
//   - Health: / and /health
//   - Ingestion: /api/devices/register, /api/devices/:id/heartbeat,
//     /api/devices/:id/{metrics,alerts,screenshots}
//   - Reads: /api/devices, /api/devices/:id, /api/devices/:id/{metrics,alerts},
//     /api/devices/:id/metrics/summary, /api/screenshots/:id
//   - Stream: /api/stream
//   - Admin: /api/admin/breaker, /api/admin/breaker/reset, /api/admin/metrics
//
// An ingestion request is acknowledged once the record is validated and
// durably stored. Forwarding to the upstream sink happens afterwards on the
// dispatcher queue and never changes the response code.
//
// Example Usage:
//
//	handlers := api.NewHandlers(store, dispatcher, hub, breaker, probe, metrics, logger)
//	handlers.Register(router)
package api
