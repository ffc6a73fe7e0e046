package forward

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/fleetsight/collector/internal/logging"
	"github.com/fleetsight/collector/internal/monitoring"
	"github.com/fleetsight/collector/internal/resilience"
	"github.com/fleetsight/collector/internal/retry"
	"github.com/fleetsight/collector/internal/telemetry"
)

// Forwarding outcomes as recorded in logs and metrics.
const (
	OutcomeDelivered = "delivered" // the sink accepted the record
	OutcomeExhausted = "exhausted" // every attempt failed, gave up
	OutcomeRejected  = "rejected"  // the circuit breaker refused the call
	OutcomeAborted   = "aborted"   // a permanent failure, not attempted again
	OutcomeDisabled  = "disabled"  // no sink configured
)

// Request is one record handed to the forwarding pipeline. The caller gives
// up ownership on hand-off and must not mutate the payload afterwards.
type Request struct {
	Kind     telemetry.Kind
	DeviceID string
	Payload  interface{}
}

// Forwarder pushes accepted records to the sink. Every delivery runs the
// retry engine inside the shared circuit breaker, so breaker counters see
// final outcomes rather than individual attempts. Failures surface only as
// the boolean result plus logs and metrics; nothing propagates to ingestion.
type Forwarder struct {
	sink    *Client
	breaker *resilience.Breaker
	engine  *retry.Engine
	policy  retry.Policy
	metrics *monitoring.Metrics
	log     *logging.Logger
	enabled bool
}

// NewForwarder wires the delivery pipeline. A nil sink disables forwarding
// entirely: Forward becomes a no-op returning false.
func NewForwarder(
	sink *Client,
	breaker *resilience.Breaker,
	engine *retry.Engine,
	policy retry.Policy,
	metrics *monitoring.Metrics,
	log *logging.Logger,
) *Forwarder {
	return &Forwarder{
		sink:    sink,
		breaker: breaker,
		engine:  engine,
		policy:  policy,
		metrics: metrics,
		log:     log,
		enabled: sink != nil,
	}
}

// Enabled reports whether a sink is configured.
func (f *Forwarder) Enabled() bool {
	return f.enabled
}

// Budget returns the upper bound one Forward call may spend on delivery.
// Zero means unbounded.
func (f *Forwarder) Budget() time.Duration {
	return f.policy.Budget()
}

// Forward delivers one record to the sink. It reports true only when the
// sink accepted the record. It never panics and never returns an error;
// local ingestion must not notice sink trouble in any form.
func (f *Forwarder) Forward(ctx context.Context, req Request) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("forwarding panicked",
				zap.String("kind", string(req.Kind)),
				zap.String("device_id", req.DeviceID),
				zap.Any("panic", r))
			delivered = false
		}
	}()

	if !f.enabled {
		f.metrics.RecordForward(string(req.Kind), OutcomeDisabled, 0)
		return false
	}

	body, err := sonic.Marshal(req.Payload)
	if err != nil {
		f.log.Error("record marshal failed, not forwarding",
			zap.String("kind", string(req.Kind)),
			zap.String("device_id", req.DeviceID),
			zap.Error(err))
		f.metrics.RecordForward(string(req.Kind), OutcomeAborted, 0)
		return false
	}

	timer := monitoring.NewTimer(f.metrics, string(req.Kind))
	_, err = f.breaker.Execute(func() (interface{}, error) {
		return nil, f.deliver(ctx, req.Kind, body)
	})

	outcome := classifyResult(err)
	timer.Stop(outcome)

	switch outcome {
	case OutcomeDelivered:
		f.log.Debug("record forwarded",
			zap.String("kind", string(req.Kind)),
			zap.String("device_id", req.DeviceID))
		return true
	case OutcomeRejected:
		f.log.Warn("sink circuit open, record not forwarded",
			zap.String("kind", string(req.Kind)),
			zap.String("device_id", req.DeviceID),
			zap.String("breaker", f.breaker.Name()))
	default:
		f.log.Warn("record not forwarded",
			zap.String("kind", string(req.Kind)),
			zap.String("device_id", req.DeviceID),
			zap.String("outcome", outcome),
			zap.Error(err))
	}
	return false
}

// deliver runs the full retry loop for one record body.
func (f *Forwarder) deliver(ctx context.Context, kind telemetry.Kind, body []byte) error {
	label := "sink " + string(kind)
	return f.engine.DoContext(ctx, f.policy, label, func(ctx context.Context) retry.Outcome {
		f.metrics.IncForwardAttempt(string(kind))
		resp, err := f.sink.Send(ctx, kind, body)
		return Classify(resp, err)
	})
}

// classifyResult maps the error coming out of the breaker to an outcome
// label. The error identity carries the whole story: breaker rejections
// wrap resilience.ErrOpen, retry verdicts arrive as typed errors.
func classifyResult(err error) string {
	if err == nil {
		return OutcomeDelivered
	}
	if errors.Is(err, resilience.ErrOpen) {
		return OutcomeRejected
	}
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return OutcomeExhausted
	}
	return OutcomeAborted
}
