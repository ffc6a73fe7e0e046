package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fleetsight/collector/internal/logging"
)

// Engine runs operations under retry policies. It holds no state between
// invocations; any number of goroutines may share one engine.
type Engine struct {
	log *logging.Logger
}

// NewEngine creates a retry engine that reports attempts through log.
func NewEngine(log *logging.Logger) *Engine {
	if log == nil {
		log = logging.NewNop()
	}
	return &Engine{log: log}
}

// Do runs op under policy, sleeping between attempts. The label names the
// operation in logs and errors. It returns nil as soon as an attempt
// succeeds, a *PermanentError when an attempt reports a non-retryable
// failure, and an *ExhaustedError once every allowed attempt has failed.
func (e *Engine) Do(policy Policy, label string, op func() Outcome) error {
	return e.DoContext(context.Background(), policy, label, func(context.Context) Outcome {
		return op()
	})
}

// DoContext is Do for context-aware operations. Each attempt receives a
// context bounded by policy.OperationTimeout when one is set. Cancelling
// ctx aborts the run between attempts with ctx.Err().
func (e *Engine) DoContext(ctx context.Context, policy Policy, label string, op func(context.Context) Outcome) error {
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("%s: invalid retry policy: %w", label, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		outcome := runAttempt(ctx, policy, op)

		switch outcome.Kind {
		case KindSuccess:
			if attempt > 1 {
				e.log.Info("operation recovered",
					zap.String("operation", label),
					zap.Int("attempt", attempt))
			}
			return nil

		case KindPermanent:
			e.log.Error("operation failed permanently",
				zap.String("operation", label),
				zap.Int("attempt", attempt),
				zap.Error(outcome.Err))
			return &PermanentError{Label: label, Err: outcome.Err}
		}

		lastErr = outcome.Err
		if attempt == policy.MaxAttempts {
			break
		}

		delay := policy.Delay(attempt)
		msg := "operation failed, retrying"
		if errors.Is(outcome.Err, context.DeadlineExceeded) {
			msg = "operation timed out, retrying"
		}
		e.log.Warn(msg,
			zap.String("operation", label),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(outcome.Err))

		if err := wait(ctx, delay); err != nil {
			return err
		}
	}

	e.log.Error("operation attempts exhausted",
		zap.String("operation", label),
		zap.Int("attempts", policy.MaxAttempts),
		zap.Error(lastErr))
	return &ExhaustedError{Label: label, Attempts: policy.MaxAttempts, Err: lastErr}
}

// runAttempt executes a single invocation under the per-attempt time limit.
func runAttempt(ctx context.Context, policy Policy, op func(context.Context) Outcome) Outcome {
	if policy.OperationTimeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, policy.OperationTimeout)
	defer cancel()
	return op(attemptCtx)
}

// wait sleeps for the given delay or until ctx is cancelled.
func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
