// Package storage persists devices and telemetry records. SQLite backs
// production deployments; the in-memory store backs tests and sink-less
// development runs.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/fleetsight/collector/internal/telemetry"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Stats summarizes stored record counts for the health endpoint.
type Stats struct {
	Devices     int64 `json:"devices"`
	Metrics     int64 `json:"metrics"`
	Alerts      int64 `json:"alerts"`
	Screenshots int64 `json:"screenshots"`
}

// Store persists devices and their telemetry. Implementations must be safe
// for concurrent use. Storage never participates in forwarding; a record is
// durable before any delivery attempt starts.
type Store interface {
	RegisterDevice(ctx context.Context, d *telemetry.Device) error
	TouchDevice(ctx context.Context, id string, seen time.Time) error
	GetDevice(ctx context.Context, id string) (*telemetry.Device, error)
	ListDevices(ctx context.Context) ([]*telemetry.Device, error)

	InsertMetric(ctx context.Context, m *telemetry.Metric) error
	ListMetrics(ctx context.Context, deviceID string, limit int) ([]*telemetry.Metric, error)

	InsertAlert(ctx context.Context, a *telemetry.Alert) error
	ListAlerts(ctx context.Context, deviceID string, limit int) ([]*telemetry.Alert, error)

	InsertScreenshot(ctx context.Context, s *telemetry.Screenshot) error
	GetScreenshot(ctx context.Context, id string) (*telemetry.Screenshot, error)

	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// DefaultListLimit caps list queries when the caller does not set a limit.
const DefaultListLimit = 100

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return DefaultListLimit
	}
	return limit
}
