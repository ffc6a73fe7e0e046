package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsight/collector/internal/logging"
)

func testEngine() *Engine {
	return NewEngine(logging.NewNop())
}

func quickPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	invocations := 0

	err := testEngine().Do(quickPolicy(3), "noop", func() Outcome {
		invocations++
		return Succeed()
	})

	require.NoError(t, err)
	assert.Equal(t, 1, invocations)
}

func TestDoInvokesExactlyMaxAttempts(t *testing.T) {
	cause := errors.New("connection refused")

	for _, attempts := range []int{1, 2, 5} {
		invocations := 0

		err := testEngine().Do(quickPolicy(attempts), "always failing", func() Outcome {
			invocations++
			return Retry(cause)
		})

		require.Error(t, err)
		assert.Equal(t, attempts, invocations)

		var exhausted *ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, attempts, exhausted.Attempts)
		assert.ErrorIs(t, err, cause)
	}
}

func TestDoRecoversAfterFailures(t *testing.T) {
	invocations := 0

	err := testEngine().Do(quickPolicy(5), "flaky", func() Outcome {
		invocations++
		if invocations < 3 {
			return Retry(errors.New("not yet"))
		}
		return Succeed()
	})

	require.NoError(t, err)
	assert.Equal(t, 3, invocations)
}

func TestDoStopsOnPermanentFailure(t *testing.T) {
	cause := errors.New("malformed payload")
	invocations := 0

	err := testEngine().Do(quickPolicy(5), "doomed", func() Outcome {
		invocations++
		if invocations == 1 {
			return Retry(errors.New("transient"))
		}
		return Abort(cause)
	})

	require.Error(t, err)
	assert.Equal(t, 2, invocations)

	var permanent *PermanentError
	require.ErrorAs(t, err, &permanent)
	assert.ErrorIs(t, err, cause)

	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestDoRejectsInvalidPolicy(t *testing.T) {
	invocations := 0

	err := testEngine().Do(Policy{MaxAttempts: 0}, "never runs", func() Outcome {
		invocations++
		return Succeed()
	})

	require.Error(t, err)
	assert.Equal(t, 0, invocations)
	assert.Contains(t, err.Error(), "invalid retry policy")

	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestDoContextCancelDuringBackoff(t *testing.T) {
	policy := Policy{
		MaxAttempts:   3,
		InitialDelay:  time.Second,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	invocations := 0

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := testEngine().DoContext(ctx, policy, "cancelled", func(context.Context) Outcome {
		invocations++
		return Retry(errors.New("transient"))
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, invocations)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDoContextCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	invocations := 0
	err := testEngine().DoContext(ctx, quickPolicy(3), "dead on arrival", func(context.Context) Outcome {
		invocations++
		return Succeed()
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, invocations)
}

func TestDoContextAppliesOperationTimeout(t *testing.T) {
	policy := Policy{
		MaxAttempts:      2,
		InitialDelay:     time.Millisecond,
		MaxDelay:         time.Millisecond,
		BackoffFactor:    1.0,
		OperationTimeout: 10 * time.Millisecond,
	}

	invocations := 0
	err := testEngine().DoContext(context.Background(), policy, "slow sink", func(ctx context.Context) Outcome {
		invocations++
		select {
		case <-ctx.Done():
			return Retry(ctx.Err())
		case <-time.After(time.Second):
			return Succeed()
		}
	})

	require.Error(t, err)
	assert.Equal(t, 2, invocations)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var exhausted *ExhaustedError
	assert.ErrorAs(t, err, &exhausted)
}

func TestDoBackoffTiming(t *testing.T) {
	policy := Policy{
		MaxAttempts:   3,
		InitialDelay:  30 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}

	start := time.Now()
	err := testEngine().Do(policy, "timed", func() Outcome {
		return Retry(errors.New("transient"))
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	// Two waits: 30ms then 60ms.
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
}

func TestOutcomeConstructors(t *testing.T) {
	cause := errors.New("boom")

	assert.True(t, Succeed().Success())
	assert.Equal(t, KindSuccess, Succeed().Kind)
	assert.Nil(t, Succeed().Err)

	assert.Equal(t, KindRetryable, Retry(cause).Kind)
	assert.Equal(t, cause, Retry(cause).Err)
	assert.False(t, Retry(cause).Success())

	assert.Equal(t, KindPermanent, Abort(cause).Kind)
	assert.Equal(t, cause, Abort(cause).Err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "success", KindSuccess.String())
	assert.Equal(t, "retryable", KindRetryable.String())
	assert.Equal(t, "permanent", KindPermanent.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
