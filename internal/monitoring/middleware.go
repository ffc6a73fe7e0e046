package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		// Get request size
		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		// Process request
		c.Next()

		// Get response data
		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		respSize := int64(c.Writer.Size())

		// Record metrics
		metrics.RecordHTTPRequest(method, path, status, duration, reqSize, respSize)
	}
}

// Timer measures the duration of one forwarding run
type Timer struct {
	start      time.Time
	metrics    *Metrics
	recordType string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, recordType string) *Timer {
	return &Timer{
		start:      time.Now(),
		metrics:    metrics,
		recordType: recordType,
	}
}

// Stop stops the timer and records the outcome
func (t *Timer) Stop(outcome string) {
	t.metrics.RecordForward(t.recordType, outcome, time.Since(t.start))
}
