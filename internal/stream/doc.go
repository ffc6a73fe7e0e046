// Package stream provides WebSocket fan-out of accepted telemetry records.
//
// This package implements the live feed for dashboards: every record the
// collector accepts is pushed to all connected subscribers as it arrives,
// independent of sink forwarding. A subscriber that falls behind is
// disconnected rather than allowed to stall the broadcast path.
//
// Features:
//   - Single hub goroutine owns the client set; no locks on the hot path
//   - Buffered per-client send queues with slow-consumer eviction
//   - Automatic connection upgrade from HTTP
//   - Ping/pong keepalive with read deadlines
//   - Context-based shutdown
//
// Events (Server → Client):
//   - registration: A device joined the fleet
//   - metric: A resource usage sample was accepted
//   - alert: A device raised an alert
//   - screenshot: A screen capture was accepted (metadata only)
//
// Example Usage:
//
//	hub := stream.NewHub(metrics, log)
//	go hub.Run(ctx)
//	router.GET("/api/stream", hub.HandleConnection)
package stream
