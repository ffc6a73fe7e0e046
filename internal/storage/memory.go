package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fleetsight/collector/internal/telemetry"
)

// Memory is an in-process Store used when no database path is configured
// and throughout the test suite. Contents vanish on restart.
type Memory struct {
	mu          sync.RWMutex
	devices     map[string]*telemetry.Device
	metrics     map[string][]*telemetry.Metric
	alerts      map[string][]*telemetry.Alert
	screenshots map[string]*telemetry.Screenshot
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		devices:     make(map[string]*telemetry.Device),
		metrics:     make(map[string][]*telemetry.Metric),
		alerts:      make(map[string][]*telemetry.Alert),
		screenshots: make(map[string]*telemetry.Screenshot),
	}
}

func (m *Memory) RegisterDevice(_ context.Context, d *telemetry.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *d
	m.devices[d.ID] = &cp
	return nil
}

func (m *Memory) TouchDevice(_ context.Context, id string, seen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	device, ok := m.devices[id]
	if !ok {
		return ErrNotFound
	}
	device.LastSeenAt = seen
	return nil
}

func (m *Memory) GetDevice(_ context.Context, id string) (*telemetry.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	device, ok := m.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *device
	return &cp, nil
}

func (m *Memory) ListDevices(_ context.Context) ([]*telemetry.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make([]*telemetry.Device, 0, len(m.devices))
	for _, d := range m.devices {
		cp := *d
		devices = append(devices, &cp)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].LastSeenAt.After(devices[j].LastSeenAt)
	})
	return devices, nil
}

func (m *Memory) InsertMetric(_ context.Context, metric *telemetry.Metric) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *metric
	m.metrics[metric.DeviceID] = append(m.metrics[metric.DeviceID], &cp)
	return nil
}

func (m *Memory) ListMetrics(_ context.Context, deviceID string, limit int) ([]*telemetry.Metric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.metrics[deviceID]
	limit = normalizeLimit(limit)

	// Newest first.
	out := make([]*telemetry.Metric, 0, limit)
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *stored[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) InsertAlert(_ context.Context, alert *telemetry.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *alert
	m.alerts[alert.DeviceID] = append(m.alerts[alert.DeviceID], &cp)
	return nil
}

func (m *Memory) ListAlerts(_ context.Context, deviceID string, limit int) ([]*telemetry.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.alerts[deviceID]
	limit = normalizeLimit(limit)

	out := make([]*telemetry.Alert, 0, limit)
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *stored[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) InsertScreenshot(_ context.Context, s *telemetry.Screenshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.screenshots[s.ID] = &cp
	return nil
}

func (m *Memory) GetScreenshot(_ context.Context, id string) (*telemetry.Screenshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.screenshots[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		Devices:     int64(len(m.devices)),
		Screenshots: int64(len(m.screenshots)),
	}
	for _, samples := range m.metrics {
		stats.Metrics += int64(len(samples))
	}
	for _, alerts := range m.alerts {
		stats.Alerts += int64(len(alerts))
	}
	return stats, nil
}

func (m *Memory) Close() error {
	return nil
}
