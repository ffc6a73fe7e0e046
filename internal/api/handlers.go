package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fleetsight/collector/internal/forward"
	"github.com/fleetsight/collector/internal/id"
	"github.com/fleetsight/collector/internal/logging"
	"github.com/fleetsight/collector/internal/monitoring"
	"github.com/fleetsight/collector/internal/resilience"
	"github.com/fleetsight/collector/internal/storage"
	"github.com/fleetsight/collector/internal/stream"
	"github.com/fleetsight/collector/internal/telemetry"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	store      storage.Store
	dispatcher *forward.Dispatcher
	hub        *stream.Hub
	breaker    *resilience.Breaker
	probe      *forward.Probe
	metrics    *monitoring.Metrics
	log        *logging.Logger
	started    time.Time
}

// NewHandlers creates a new handler set. The probe may be nil when no sink
// is configured.
func NewHandlers(
	store storage.Store,
	dispatcher *forward.Dispatcher,
	hub *stream.Hub,
	breaker *resilience.Breaker,
	probe *forward.Probe,
	metrics *monitoring.Metrics,
	log *logging.Logger,
) *Handlers {
	return &Handlers{
		store:      store,
		dispatcher: dispatcher,
		hub:        hub,
		breaker:    breaker,
		probe:      probe,
		metrics:    metrics,
		log:        log,
		started:    time.Now().UTC(),
	}
}

// publish hands an accepted record to the forwarding queue and the live
// stream. Both are fire-and-forget: the ingestion response is already
// decided by the time this runs.
func (h *Handlers) publish(kind telemetry.Kind, deviceID string, record interface{}) {
	if h.dispatcher != nil {
		h.dispatcher.Enqueue(forward.Request{Kind: kind, DeviceID: deviceID, Payload: record})
	}
	if h.hub != nil {
		h.hub.Broadcast(stream.Event{Kind: string(kind), DeviceID: deviceID, Record: record})
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "fleetsight-collector",
		"version": "1.0.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	sink := gin.H{"configured": false}
	if h.probe != nil {
		status := h.probe.Status()
		sink = gin.H{
			"configured": true,
			"healthy":    status.Healthy,
			"checked_at": status.CheckedAt,
		}
	}

	breaker := h.breaker.Stats()

	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"storage":        stats,
		"sink":           sink,
		"breaker": gin.H{
			"state":                breaker.State.String(),
			"consecutive_failures": breaker.ConsecutiveFailures,
		},
	})
}

// RegisterDevice registers a new device and forwards the registration
func (h *Handlers) RegisterDevice(c *gin.Context) {
	var req struct {
		Hostname     string `json:"hostname" binding:"required"`
		Platform     string `json:"platform" binding:"required"`
		AgentVersion string `json:"agent_version"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	device := &telemetry.Device{
		ID:           uuid.NewString(),
		Hostname:     req.Hostname,
		Platform:     req.Platform,
		AgentVersion: req.AgentVersion,
		RegisteredAt: now,
		LastSeenAt:   now,
	}

	if err := telemetry.ValidateDevice(device); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.RegisterDevice(c.Request.Context(), device); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.metrics.IncDevicesTotal()
	h.metrics.IncIngested(string(telemetry.KindRegistration))
	h.publish(telemetry.KindRegistration, device.ID, device)

	c.JSON(http.StatusCreated, gin.H{"device": device})
}

// Heartbeat updates a device's last-seen timestamp
func (h *Handlers) Heartbeat(c *gin.Context) {
	deviceID := c.Param("id")

	err := h.store.TouchDevice(c.Request.Context(), deviceID, time.Now().UTC())
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"device_id": deviceID})
}

// IngestMetric stores a resource usage sample and forwards it
func (h *Handlers) IngestMetric(c *gin.Context) {
	deviceID := c.Param("id")

	var req struct {
		CPUPercent    float64 `json:"cpu_percent"`
		MemoryUsedMB  float64 `json:"memory_used_mb"`
		MemoryTotalMB float64 `json:"memory_total_mb"`
		DiskUsedGB    float64 `json:"disk_used_gb"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metric := &telemetry.Metric{
		ID:            id.NewMetricID(),
		DeviceID:      deviceID,
		CPUPercent:    req.CPUPercent,
		MemoryUsedMB:  req.MemoryUsedMB,
		MemoryTotalMB: req.MemoryTotalMB,
		DiskUsedGB:    req.DiskUsedGB,
		RecordedAt:    time.Now().UTC(),
	}

	if err := telemetry.ValidateMetric(metric); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.touchDevice(c, deviceID) {
		return
	}

	if err := h.store.InsertMetric(c.Request.Context(), metric); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.metrics.IncIngested(string(telemetry.KindMetric))
	h.publish(telemetry.KindMetric, deviceID, metric)

	c.JSON(http.StatusAccepted, gin.H{"metric_id": metric.ID})
}

// IngestAlert stores an alert and forwards it
func (h *Handlers) IngestAlert(c *gin.Context) {
	deviceID := c.Param("id")

	var req struct {
		Severity string `json:"severity" binding:"required"`
		Category string `json:"category"`
		Message  string `json:"message" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert := &telemetry.Alert{
		ID:        id.NewAlertID(),
		DeviceID:  deviceID,
		Severity:  req.Severity,
		Category:  req.Category,
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
	}

	if err := telemetry.ValidateAlert(alert); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.touchDevice(c, deviceID) {
		return
	}

	if err := h.store.InsertAlert(c.Request.Context(), alert); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.metrics.IncIngested(string(telemetry.KindAlert))
	h.publish(telemetry.KindAlert, deviceID, alert)

	c.JSON(http.StatusAccepted, gin.H{"alert_id": alert.ID})
}

// IngestScreenshot stores a captured screen image and forwards it
func (h *Handlers) IngestScreenshot(c *gin.Context) {
	deviceID := c.Param("id")

	var req struct {
		Format string `json:"format" binding:"required"`
		Data   []byte `json:"data" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shot := &telemetry.Screenshot{
		ID:         id.NewScreenshotID(),
		DeviceID:   deviceID,
		Format:     req.Format,
		SizeBytes:  len(req.Data),
		Data:       req.Data,
		CapturedAt: time.Now().UTC(),
	}

	if err := telemetry.ValidateScreenshot(shot); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.touchDevice(c, deviceID) {
		return
	}

	if err := h.store.InsertScreenshot(c.Request.Context(), shot); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.metrics.IncIngested(string(telemetry.KindScreenshot))
	if h.dispatcher != nil {
		h.dispatcher.Enqueue(forward.Request{Kind: telemetry.KindScreenshot, DeviceID: deviceID, Payload: shot})
	}
	if h.hub != nil {
		// Dashboards get the metadata only; frame bytes stay off the stream.
		preview := *shot
		preview.Data = nil
		h.hub.Broadcast(stream.Event{Kind: string(telemetry.KindScreenshot), DeviceID: deviceID, Record: &preview})
	}

	c.JSON(http.StatusAccepted, gin.H{"screenshot_id": shot.ID})
}

// ListDevices lists all registered devices
func (h *Handlers) ListDevices(c *gin.Context) {
	devices, err := h.store.ListDevices(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"devices": devices,
		"count":   len(devices),
	})
}

// GetDevice returns a single device
func (h *Handlers) GetDevice(c *gin.Context) {
	device, err := h.store.GetDevice(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"device": device})
}

// ListMetrics returns recent metrics for a device, newest first
func (h *Handlers) ListMetrics(c *gin.Context) {
	metrics, err := h.store.ListMetrics(c.Request.Context(), c.Param("id"), listLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"metrics": metrics,
		"count":   len(metrics),
	})
}

// SummarizeMetrics returns distribution statistics over a device's recent
// samples
func (h *Handlers) SummarizeMetrics(c *gin.Context) {
	deviceID := c.Param("id")

	if _, err := h.store.GetDevice(c.Request.Context(), deviceID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	samples, err := h.store.ListMetrics(c.Request.Context(), deviceID, listLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device_id": deviceID,
		"summary":   telemetry.Summarize(samples),
	})
}

// ListAlerts returns recent alerts for a device, newest first
func (h *Handlers) ListAlerts(c *gin.Context) {
	alerts, err := h.store.ListAlerts(c.Request.Context(), c.Param("id"), listLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetScreenshot serves a stored screenshot as an image
func (h *Handlers) GetScreenshot(c *gin.Context) {
	shot, err := h.store.GetScreenshot(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "screenshot not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "image/"+shot.Format, shot.Data)
}

// BreakerStatus reports the sink breaker state and counters
func (h *Handlers) BreakerStatus(c *gin.Context) {
	stats := h.breaker.Stats()

	resp := gin.H{
		"name":                 h.breaker.Name(),
		"state":                stats.State.String(),
		"consecutive_failures": stats.ConsecutiveFailures,
		"probes":               stats.Probes,
		"probe_successes":      stats.ProbeSuccesses,
	}
	if !stats.LastFailure.IsZero() {
		resp["last_failure"] = stats.LastFailure
	}

	c.JSON(http.StatusOK, resp)
}

// BreakerReset forces the sink breaker back to closed
func (h *Handlers) BreakerReset(c *gin.Context) {
	h.breaker.Reset()
	h.log.Info("circuit breaker reset via admin endpoint")

	c.JSON(http.StatusOK, gin.H{
		"name":  h.breaker.Name(),
		"state": h.breaker.State().String(),
	})
}

// MetricsSnapshot reports rolled-up counters for dashboards that do not
// scrape Prometheus
func (h *Handlers) MetricsSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetSnapshot())
}

// touchDevice bumps the device's last-seen timestamp and writes the error
// response itself when the device is unknown or the store fails.
func (h *Handlers) touchDevice(c *gin.Context, deviceID string) bool {
	err := h.store.TouchDevice(c.Request.Context(), deviceID, time.Now().UTC())
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func listLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		return 0
	}
	return limit
}
