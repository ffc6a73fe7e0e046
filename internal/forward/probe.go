package forward

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/fleetsight/collector/internal/logging"
)

// ProbeStatus is the sink health as seen by the last background check.
type ProbeStatus struct {
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checked_at"`
}

// Probe checks sink reachability out of band so the health endpoint can
// report it. It is informational only and never gates forwarding; the
// circuit breaker owns that decision.
type Probe struct {
	client   *retryablehttp.Client
	url      string
	interval time.Duration
	log      *logging.Logger

	mu     sync.RWMutex
	status ProbeStatus
}

// NewProbe creates a probe that checks {sinkURL}/health every interval.
func NewProbe(sinkURL string, interval time.Duration, log *logging.Logger) *Probe {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = nil // Disable logging

	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Probe{
		client:   client,
		url:      sinkURL + "/health",
		interval: interval,
		log:      log,
	}
}

// Run checks the sink until ctx is cancelled. Call it on its own goroutine.
func (p *Probe) Run(ctx context.Context) {
	p.check(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check(ctx)
		}
	}
}

// Status returns the result of the most recent check.
func (p *Probe) Status() ProbeStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *Probe) check(ctx context.Context) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.record(false)
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debug("sink health check failed", zap.Error(err))
		p.record(false)
		return
	}
	defer resp.Body.Close()

	p.record(resp.StatusCode < http.StatusInternalServerError)
}

func (p *Probe) record(healthy bool) {
	p.mu.Lock()
	prev := p.status.Healthy
	p.status = ProbeStatus{Healthy: healthy, CheckedAt: time.Now().UTC()}
	p.mu.Unlock()

	if prev != healthy {
		p.log.Info("sink health changed", zap.Bool("healthy", healthy))
	}
}
