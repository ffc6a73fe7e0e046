package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the circuit breaker rejects a call without
// executing it, either because the circuit is open or because the half-open
// probe budget is already spent.
var ErrOpen = errors.New("circuit breaker is open")

// OpenError reports which breaker rejected a call. It unwraps to ErrOpen.
type OpenError struct {
	Name string
}

func (e *OpenError) Error() string {
	return "circuit breaker " + e.Name + " is open"
}

func (e *OpenError) Unwrap() error {
	return ErrOpen
}

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Config configures the circuit breaker behavior
type Config struct {
	// MaxFailures is the number of consecutive failures that trips the
	// circuit from closed to open
	MaxFailures int
	// OpenTimeout is how long the circuit stays open before the next call
	// may probe the destination again
	OpenTimeout time.Duration
	// MaxHalfOpenProbes is the number of trial calls admitted while
	// half-open; every one of them must succeed for the circuit to close
	MaxHalfOpenProbes int
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from State, to State)
}

// Stats is a point-in-time view of the breaker counters.
type Stats struct {
	State               State
	ConsecutiveFailures int
	Probes              int
	ProbeSuccesses      int
	LastFailure         time.Time
}

// Breaker implements the circuit breaker pattern for a single destination.
// All methods are safe for concurrent use.
type Breaker struct {
	name   string
	config Config

	mu             sync.Mutex
	state          State
	generation     uint64
	failures       int
	lastFailure    time.Time
	probes         int
	probeSuccesses int
}

// New creates a new circuit breaker with the given configuration
func New(name string, config Config) *Breaker {
	// Set default values
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 60 * time.Second
	}
	if config.MaxHalfOpenProbes <= 0 {
		config.MaxHalfOpenProbes = 1
	}

	return &Breaker{
		name:   name,
		config: config,
		state:  StateClosed,
	}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.currentState(time.Now())
}

// Stats returns a snapshot of the breaker counters
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		State:               b.currentState(time.Now()),
		ConsecutiveFailures: b.failures,
		Probes:              b.probes,
		ProbeSuccesses:      b.probeSuccesses,
		LastFailure:         b.lastFailure,
	}
}

// Execute runs the given request if the circuit breaker accepts it. A
// rejected call returns an *OpenError without invoking req. The lock is
// never held while req runs.
func (b *Breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	generation, err := b.beforeCall()
	if err != nil {
		return nil, err
	}

	defer func() {
		e := recover()
		if e != nil {
			b.afterCall(generation, false)
			panic(e)
		}
	}()

	result, err := req()
	b.afterCall(generation, err == nil)
	return result, err
}

// Reset forces the circuit back to closed and clears every counter,
// regardless of the current state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.state
	b.state = StateClosed
	b.generation++
	b.resetCounts()
	b.lastFailure = time.Time{}

	if prev != StateClosed && b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, prev, StateClosed)
	}
}

// beforeCall decides whether the call may proceed. Admission and probe
// accounting happen in one critical section so the half-open probe budget
// can never be oversubscribed.
func (b *Breaker) beforeCall() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state := b.currentState(now)

	if state == StateOpen {
		return b.generation, &OpenError{Name: b.name}
	}

	if state == StateHalfOpen {
		if b.probes >= b.config.MaxHalfOpenProbes {
			return b.generation, &OpenError{Name: b.name}
		}
		b.probes++
	}

	return b.generation, nil
}

// afterCall records the result of an admitted call. Results from a
// superseded generation are discarded: the window they were admitted in no
// longer exists.
func (b *Breaker) afterCall(before uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state := b.currentState(now)
	if b.generation != before {
		return
	}

	if success {
		b.onSuccess(state, now)
	} else {
		b.onFailure(state, now)
	}
}

// onSuccess handles successful calls
func (b *Breaker) onSuccess(state State, now time.Time) {
	switch state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.probeSuccesses++
		if b.probeSuccesses >= b.config.MaxHalfOpenProbes {
			b.setState(StateClosed, now)
		}
	}
}

// onFailure handles failed calls
func (b *Breaker) onFailure(state State, now time.Time) {
	switch state {
	case StateClosed:
		b.failures++
		b.lastFailure = now
		if b.failures >= b.config.MaxFailures {
			b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		// One failed probe reopens the circuit; earlier probe successes
		// in this window are forfeited.
		b.lastFailure = now
		b.setState(StateOpen, now)
	}
}

// currentState lazily moves an expired open circuit to half-open. Callers
// must hold the lock.
func (b *Breaker) currentState(now time.Time) State {
	if b.state == StateOpen && now.Sub(b.lastFailure) >= b.config.OpenTimeout {
		b.setState(StateHalfOpen, now)
	}
	return b.state
}

// setState changes the state of the circuit breaker
func (b *Breaker) setState(state State, now time.Time) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.generation++
	b.resetCounts()

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, prev, state)
	}
}

// resetCounts resets the internal counters
func (b *Breaker) resetCounts() {
	b.failures = 0
	b.probes = 0
	b.probeSuccesses = 0
}
