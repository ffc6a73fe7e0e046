// Package telemetry defines the records device agents report and the
// validation rules applied before anything is stored or forwarded.
package telemetry

import "time"

// Kind identifies a telemetry record category.
type Kind string

const (
	KindRegistration Kind = "registration"
	KindMetric       Kind = "metric"
	KindAlert        Kind = "alert"
	KindScreenshot   Kind = "screenshot"
)

// Valid reports whether k is a known record kind.
func (k Kind) Valid() bool {
	switch k {
	case KindRegistration, KindMetric, KindAlert, KindScreenshot:
		return true
	default:
		return false
	}
}

// SinkPath returns the ingest path for this kind on the sink service.
func (k Kind) SinkPath() string {
	switch k {
	case KindRegistration:
		return "/ingest/registrations"
	case KindMetric:
		return "/ingest/metrics"
	case KindAlert:
		return "/ingest/alerts"
	case KindScreenshot:
		return "/ingest/screenshots"
	default:
		return "/ingest/unknown"
	}
}

// Device is a monitored endpoint known to the collector.
type Device struct {
	ID           string    `json:"id"`
	Hostname     string    `json:"hostname"`
	Platform     string    `json:"platform"`
	AgentVersion string    `json:"agent_version,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}

// Metric is one resource usage sample reported by a device.
type Metric struct {
	ID            string    `json:"id"`
	DeviceID      string    `json:"device_id"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryUsedMB  float64   `json:"memory_used_mb"`
	MemoryTotalMB float64   `json:"memory_total_mb"`
	DiskUsedGB    float64   `json:"disk_used_gb"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// Alert is a noteworthy condition raised by a device agent.
type Alert struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	Severity  string    `json:"severity"`
	Category  string    `json:"category,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Screenshot is a captured screen image uploaded by a device agent. Data is
// base64 in JSON and omitted from stream previews.
type Screenshot struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"device_id"`
	Format     string    `json:"format"`
	SizeBytes  int       `json:"size_bytes"`
	Data       []byte    `json:"data,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}
