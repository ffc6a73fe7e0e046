package api

import "github.com/gin-gonic/gin"

// Register wires the handler set onto the router. The /metrics endpoint is
// registered by the server so this package stays free of Prometheus exposition.
func (h *Handlers) Register(router *gin.Engine) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	api := router.Group("/api")

	// Ingestion
	api.POST("/devices/register", h.RegisterDevice)
	api.POST("/devices/:id/heartbeat", h.Heartbeat)
	api.POST("/devices/:id/metrics", h.IngestMetric)
	api.POST("/devices/:id/alerts", h.IngestAlert)
	api.POST("/devices/:id/screenshots", h.IngestScreenshot)

	// Dashboard reads
	api.GET("/devices", h.ListDevices)
	api.GET("/devices/:id", h.GetDevice)
	api.GET("/devices/:id/metrics", h.ListMetrics)
	api.GET("/devices/:id/metrics/summary", h.SummarizeMetrics)
	api.GET("/devices/:id/alerts", h.ListAlerts)
	api.GET("/screenshots/:id", h.GetScreenshot)

	// Live feed
	if h.hub != nil {
		api.GET("/stream", h.hub.HandleConnection)
	}

	// Administration
	admin := api.Group("/admin")
	admin.GET("/breaker", h.BreakerStatus)
	admin.POST("/breaker/reset", h.BreakerReset)
	admin.GET("/metrics", h.MetricsSnapshot)
}
