package retry

import (
	"fmt"
	"math"
	"time"
)

// Policy controls how many times an operation is attempted and how long to
// wait between attempts. Policies are plain values; share and copy freely.
type Policy struct {
	// MaxAttempts is the total number of invocations allowed, including
	// the first one.
	MaxAttempts int
	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the exponential growth of the wait.
	MaxDelay time.Duration
	// BackoffFactor multiplies the delay after every failed attempt.
	BackoffFactor float64
	// OperationTimeout bounds a single attempt. Zero means no per-attempt
	// limit. It is enforced through the attempt context, so only
	// context-aware operations observe it.
	OperationTimeout time.Duration
}

// Default returns a general-purpose policy: a few quick attempts.
func Default() Policy {
	return Policy{
		MaxAttempts:      3,
		InitialDelay:     100 * time.Millisecond,
		MaxDelay:         2 * time.Second,
		BackoffFactor:    2.0,
		OperationTimeout: 5 * time.Second,
	}
}

// Database returns a policy tuned for local storage: more attempts with
// short delays, since contention clears quickly.
func Database() Policy {
	return Policy{
		MaxAttempts:      5,
		InitialDelay:     50 * time.Millisecond,
		MaxDelay:         time.Second,
		BackoffFactor:    2.0,
		OperationTimeout: 2 * time.Second,
	}
}

// ExternalService returns a policy tuned for remote HTTP destinations:
// patient backoff with a generous cap.
func ExternalService() Policy {
	return Policy{
		MaxAttempts:      4,
		InitialDelay:     250 * time.Millisecond,
		MaxDelay:         10 * time.Second,
		BackoffFactor:    2.0,
		OperationTimeout: 10 * time.Second,
	}
}

// Validate checks the policy bounds. Engines reject invalid policies before
// the first attempt.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.InitialDelay < 0 {
		return fmt.Errorf("initial delay must not be negative, got %s", p.InitialDelay)
	}
	if p.MaxDelay < p.InitialDelay {
		return fmt.Errorf("max delay %s must not be below initial delay %s", p.MaxDelay, p.InitialDelay)
	}
	if p.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff factor must be at least 1.0, got %g", p.BackoffFactor)
	}
	if p.OperationTimeout < 0 {
		return fmt.Errorf("operation timeout must not be negative, got %s", p.OperationTimeout)
	}
	return nil
}

// Delay returns the wait after the given failed attempt (1-based): the
// initial delay grown by the backoff factor, capped at MaxDelay. The
// sequence never decreases.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(p.BackoffFactor, float64(attempt-1)))
	if d > p.MaxDelay || d < 0 {
		d = p.MaxDelay
	}
	return d
}

// Budget returns an upper bound on the wall-clock time one full run can
// spend: every attempt using its whole timeout plus every delay between
// attempts. Zero means the policy is unbounded.
func (p Policy) Budget() time.Duration {
	if p.OperationTimeout <= 0 {
		return 0
	}
	budget := time.Duration(p.MaxAttempts) * p.OperationTimeout
	for attempt := 1; attempt < p.MaxAttempts; attempt++ {
		budget += p.Delay(attempt)
	}
	return budget
}
