package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Ingestion metrics
	IngestedTotal *prometheus.CounterVec
	DevicesTotal  prometheus.Counter

	// Forwarding metrics
	ForwardsTotal     *prometheus.CounterVec
	ForwardDuration   *prometheus.HistogramVec
	ForwardAttempts   *prometheus.CounterVec
	ForwardDropped    *prometheus.CounterVec
	ForwardQueueDepth prometheus.Gauge

	// Circuit breaker metrics
	BreakerState       *prometheus.GaugeVec
	BreakerTransitions *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSEvents      *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for the JSON admin API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON admin API
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	TotalDuration     float64 `json:"-"`
	RequestCount      int64   `json:"-"`
	AvgDurationMs     float64 `json:"avg_duration_ms"`
	ForwardsDelivered int64   `json:"forwards_delivered"`
	ForwardsFailed    int64   `json:"forwards_failed"`
	ForwardsDropped   int64   `json:"forwards_dropped"`
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collector_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collector_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collector_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Ingestion metrics
		IngestedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_ingested_total",
				Help: "Total number of telemetry records accepted",
			},
			[]string{"type"},
		),
		DevicesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "collector_devices_registered_total",
				Help: "Total number of devices registered",
			},
		),

		// Forwarding metrics
		ForwardsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_forwards_total",
				Help: "Total number of forwarding results by outcome",
			},
			[]string{"type", "outcome"},
		),
		ForwardDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collector_forward_duration_seconds",
				Help:    "Wall-clock time spent forwarding one record",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"type"},
		),
		ForwardAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_forward_attempts_total",
				Help: "Total number of individual delivery attempts",
			},
			[]string{"type"},
		),
		ForwardDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_forward_dropped_total",
				Help: "Records dropped because the forward queue was full",
			},
			[]string{"type"},
		),
		ForwardQueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "collector_forward_queue_depth",
				Help: "Records currently waiting in the forward queue",
			},
		),

		// Circuit breaker metrics
		BreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "collector_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"breaker"},
		),
		BreakerTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_breaker_transitions_total",
				Help: "Total number of circuit breaker state transitions",
			},
			[]string{"breaker", "to"},
		),

		// WebSocket metrics
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "collector_ws_connections",
				Help: "Number of active WebSocket stream clients",
			},
		),
		WSEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_ws_events_total",
				Help: "Total number of events broadcast to stream clients",
			},
			[]string{"type"},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "collector_uptime_seconds",
				Help: "Collector uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// IncIngested counts one accepted telemetry record
func (m *Metrics) IncIngested(recordType string) {
	m.IngestedTotal.WithLabelValues(recordType).Inc()
}

// IncDevicesTotal counts one device registration
func (m *Metrics) IncDevicesTotal() {
	m.DevicesTotal.Inc()
}

// RecordForward records the final outcome of one forwarding run
func (m *Metrics) RecordForward(recordType, outcome string, duration time.Duration) {
	m.ForwardsTotal.WithLabelValues(recordType, outcome).Inc()
	m.ForwardDuration.WithLabelValues(recordType).Observe(duration.Seconds())

	m.mu.Lock()
	switch outcome {
	case "delivered":
		m.snapshot.ForwardsDelivered++
	case "disabled":
		// no sink configured, nothing to count
	default:
		m.snapshot.ForwardsFailed++
	}
	m.mu.Unlock()
}

// IncForwardAttempt counts one individual delivery attempt
func (m *Metrics) IncForwardAttempt(recordType string) {
	m.ForwardAttempts.WithLabelValues(recordType).Inc()
}

// IncForwardDropped counts a record dropped at the queue
func (m *Metrics) IncForwardDropped(recordType string) {
	m.ForwardDropped.WithLabelValues(recordType).Inc()

	m.mu.Lock()
	m.snapshot.ForwardsDropped++
	m.mu.Unlock()
}

// SetForwardQueueDepth sets the current forward queue depth
func (m *Metrics) SetForwardQueueDepth(depth int) {
	m.ForwardQueueDepth.Set(float64(depth))
}

// SetBreakerState sets the state gauge for a breaker
func (m *Metrics) SetBreakerState(name string, state int) {
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// IncBreakerTransition counts a breaker state transition
func (m *Metrics) IncBreakerTransition(name, to string) {
	m.BreakerTransitions.WithLabelValues(name, to).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// IncWSEvent counts one broadcast event
func (m *Metrics) IncWSEvent(eventType string) {
	m.WSEvents.WithLabelValues(eventType).Inc()
}

// GetSnapshot returns current metric values for the JSON admin API
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.snapshot
	if snap.RequestCount > 0 {
		snap.AvgDurationMs = snap.TotalDuration / float64(snap.RequestCount) * 1000
	}
	return snap
}
