/*
Package resilience provides a circuit breaker for outbound destinations.

# Overview

This package implements the circuit breaker pattern to stop hammering a
destination that keeps failing, and to probe it carefully once it has had
time to recover.

# Features

- Three-state circuit breaker (Closed, Open, Half-Open)
- Trips after a configurable run of consecutive failures
- Budgeted half-open probing with strict all-or-nothing recovery
- Manual reset for operator intervention
- State change callbacks for monitoring
- Safe for concurrent use; the lock is never held across the wrapped call

# Usage

	breaker := resilience.New("sink", resilience.Config{
		MaxFailures:       5,
		OpenTimeout:       30 * time.Second,
		MaxHalfOpenProbes: 3,
		OnStateChange: func(name string, from, to resilience.State) {
			log.Info("circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	// Execute a call through the breaker
	_, err := breaker.Execute(func() (interface{}, error) {
		return nil, client.Deliver(record)
	})
	if errors.Is(err, resilience.ErrOpen) {
		// rejected without being attempted
	}

# States

- Closed: normal operation, calls pass through
- Open: destination considered down, calls rejected immediately
- Half-Open: a limited number of probe calls test the destination

# Pattern

	Closed --[MaxFailures consecutive failures]-> Open
	Open --[OpenTimeout elapses]-> Half-Open
	Half-Open --[every probe succeeds]-> Closed
	Half-Open --[any probe fails]-> Open

Recovery is deliberately strict: all MaxHalfOpenProbes probes must succeed,
and a single probe failure reopens the circuit on the spot.
*/
package resilience
