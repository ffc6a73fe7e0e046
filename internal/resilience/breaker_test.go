package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnreachable = errors.New("sink unreachable")

func fail() (interface{}, error) {
	return nil, errUnreachable
}

func succeed() (interface{}, error) {
	return "ok", nil
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		config        Config
		requests      []bool // true = success, false = failure
		expectedState State
	}{
		{
			name: "stays closed on successes",
			config: Config{
				MaxFailures:       3,
				OpenTimeout:       time.Minute,
				MaxHalfOpenProbes: 1,
			},
			requests:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name: "opens after consecutive failures",
			config: Config{
				MaxFailures:       3,
				OpenTimeout:       time.Minute,
				MaxHalfOpenProbes: 1,
			},
			requests:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name: "success interrupts the failure run",
			config: Config{
				MaxFailures:       3,
				OpenTimeout:       time.Minute,
				MaxHalfOpenProbes: 1,
			},
			requests:      []bool{false, false, true, false, false},
			expectedState: StateClosed,
		},
		{
			name: "stays closed below the threshold",
			config: Config{
				MaxFailures:       5,
				OpenTimeout:       time.Minute,
				MaxHalfOpenProbes: 1,
			},
			requests:      []bool{false, false, false, false},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", tt.config)

			for _, success := range tt.requests {
				if success {
					_, _ = breaker.Execute(succeed)
				} else {
					_, _ = breaker.Execute(fail)
				}
			}

			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerStartsClosed(t *testing.T) {
	breaker := New("test", Config{})
	assert.Equal(t, StateClosed, breaker.State())

	stats := breaker.Stats()
	assert.Zero(t, stats.ConsecutiveFailures)
	assert.Zero(t, stats.Probes)
}

func TestBreakerOpenRejectsWithoutInvoking(t *testing.T) {
	breaker := New("test", Config{
		MaxFailures:       2,
		OpenTimeout:       time.Minute,
		MaxHalfOpenProbes: 1,
	})

	for i := 0; i < 2; i++ {
		_, _ = breaker.Execute(fail)
	}
	require.Equal(t, StateOpen, breaker.State())

	invoked := false
	_, err := breaker.Execute(func() (interface{}, error) {
		invoked = true
		return "ok", nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, invoked)

	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, "test", openErr.Name)
}

func TestBreakerHalfOpenAfterTimeout(t *testing.T) {
	breaker := New("test", Config{
		MaxFailures:       1,
		OpenTimeout:       20 * time.Millisecond,
		MaxHalfOpenProbes: 2,
	})

	_, _ = breaker.Execute(fail)
	require.Equal(t, StateOpen, breaker.State())

	time.Sleep(30 * time.Millisecond)

	// The next call is admitted as a probe.
	invoked := false
	_, err := breaker.Execute(func() (interface{}, error) {
		invoked = true
		return "ok", nil
	})
	require.NoError(t, err)
	assert.True(t, invoked)
	assert.Equal(t, StateHalfOpen, breaker.State())
}

func TestBreakerClosesAfterAllProbesSucceed(t *testing.T) {
	breaker := New("test", Config{
		MaxFailures:       1,
		OpenTimeout:       10 * time.Millisecond,
		MaxHalfOpenProbes: 3,
	})

	_, _ = breaker.Execute(fail)
	time.Sleep(15 * time.Millisecond)

	for i := 0; i < 2; i++ {
		_, err := breaker.Execute(succeed)
		require.NoError(t, err)
		require.Equal(t, StateHalfOpen, breaker.State(), "after %d probes", i+1)
	}

	_, err := breaker.Execute(succeed)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, breaker.State())

	stats := breaker.Stats()
	assert.Zero(t, stats.ConsecutiveFailures)
	assert.Zero(t, stats.Probes)
	assert.Zero(t, stats.ProbeSuccesses)
}

func TestBreakerReopensOnProbeFailure(t *testing.T) {
	breaker := New("test", Config{
		MaxFailures:       1,
		OpenTimeout:       10 * time.Millisecond,
		MaxHalfOpenProbes: 3,
	})

	_, _ = breaker.Execute(fail)
	time.Sleep(15 * time.Millisecond)

	// Two successful probes, then one failure: earlier successes count
	// for nothing.
	for i := 0; i < 2; i++ {
		_, err := breaker.Execute(succeed)
		require.NoError(t, err)
	}
	require.Equal(t, StateHalfOpen, breaker.State())

	_, _ = breaker.Execute(fail)
	assert.Equal(t, StateOpen, breaker.State())

	// And the fresh open window rejects immediately.
	_, err := breaker.Execute(succeed)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreakerHalfOpenProbeBudget(t *testing.T) {
	const probes = 2

	breaker := New("test", Config{
		MaxFailures:       1,
		OpenTimeout:       10 * time.Millisecond,
		MaxHalfOpenProbes: probes,
	})

	_, _ = breaker.Execute(fail)
	require.Equal(t, StateOpen, breaker.State())

	time.Sleep(15 * time.Millisecond)

	var admitted, rejected int32
	release := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < probes+4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := breaker.Execute(func() (interface{}, error) {
				atomic.AddInt32(&admitted, 1)
				<-release
				return "ok", nil
			})
			if errors.Is(err, ErrOpen) {
				atomic.AddInt32(&rejected, 1)
			}
		}()
	}

	// Every call must reach its admission decision while the admitted
	// probes are still in flight.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&admitted)+atomic.LoadInt32(&rejected) == probes+4
	}, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(probes), atomic.LoadInt32(&admitted))
	assert.Equal(t, int32(4), atomic.LoadInt32(&rejected))
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerReset(t *testing.T) {
	breaker := New("test", Config{
		MaxFailures:       2,
		OpenTimeout:       time.Minute,
		MaxHalfOpenProbes: 1,
	})

	for i := 0; i < 2; i++ {
		_, _ = breaker.Execute(fail)
	}
	require.Equal(t, StateOpen, breaker.State())

	breaker.Reset()

	assert.Equal(t, StateClosed, breaker.State())
	stats := breaker.Stats()
	assert.Zero(t, stats.ConsecutiveFailures)
	assert.True(t, stats.LastFailure.IsZero())

	// Calls flow again without waiting out the open timeout.
	_, err := breaker.Execute(succeed)
	assert.NoError(t, err)
}

func TestBreakerResetFromHalfOpen(t *testing.T) {
	breaker := New("test", Config{
		MaxFailures:       1,
		OpenTimeout:       10 * time.Millisecond,
		MaxHalfOpenProbes: 5,
	})

	_, _ = breaker.Execute(fail)
	time.Sleep(15 * time.Millisecond)

	_, err := breaker.Execute(succeed)
	require.NoError(t, err)
	require.Equal(t, StateHalfOpen, breaker.State())

	breaker.Reset()
	assert.Equal(t, StateClosed, breaker.State())
	assert.Zero(t, breaker.Stats().ProbeSuccesses)
}

func TestBreakerRecoveryCycle(t *testing.T) {
	timeout := 100 * time.Millisecond
	breaker := New("sink", Config{
		MaxFailures:       3,
		OpenTimeout:       timeout,
		MaxHalfOpenProbes: 2,
	})

	for i := 0; i < 3; i++ {
		_, _ = breaker.Execute(fail)
	}
	require.Equal(t, StateOpen, breaker.State())

	// Inside the open window: rejected without executing.
	time.Sleep(timeout / 2)
	invoked := false
	_, err := breaker.Execute(func() (interface{}, error) {
		invoked = true
		return "ok", nil
	})
	require.ErrorIs(t, err, ErrOpen)
	require.False(t, invoked)

	// Past the open window: probes run and close the circuit.
	time.Sleep(timeout/2 + 20*time.Millisecond)
	for i := 0; i < 2; i++ {
		_, err := breaker.Execute(succeed)
		require.NoError(t, err)
	}
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerCallbacks(t *testing.T) {
	var mu sync.Mutex
	var transitions []string

	breaker := New("test", Config{
		MaxFailures:       2,
		OpenTimeout:       10 * time.Millisecond,
		MaxHalfOpenProbes: 1,
		OnStateChange: func(name string, from State, to State) {
			mu.Lock()
			transitions = append(transitions, from.String()+"->"+to.String())
			mu.Unlock()
		},
	})

	for i := 0; i < 2; i++ {
		_, _ = breaker.Execute(fail)
	}

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, breaker.State())

	_, err := breaker.Execute(succeed)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	breaker := New("test", Config{
		MaxFailures:       1,
		OpenTimeout:       time.Minute,
		MaxHalfOpenProbes: 1,
	})

	assert.Panics(t, func() {
		_, _ = breaker.Execute(func() (interface{}, error) {
			panic("marshal blew up")
		})
	})

	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerDefaults(t *testing.T) {
	breaker := New("test", Config{})

	assert.Equal(t, 5, breaker.config.MaxFailures)
	assert.Equal(t, 60*time.Second, breaker.config.OpenTimeout)
	assert.Equal(t, 1, breaker.config.MaxHalfOpenProbes)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
