package forward

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsight/collector/internal/logging"
	"github.com/fleetsight/collector/internal/resilience"
)

func TestDispatcherDeliversInBackground(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	forwarder, _ := newTestForwarder(server.URL, testPolicy(3), resilience.Config{MaxFailures: 3})
	dispatcher := NewDispatcher(forwarder, 16, 2, testMetrics, logging.NewNop())
	dispatcher.Start()

	for i := 0; i < 5; i++ {
		assert.True(t, dispatcher.Enqueue(metricRequest()))
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&requests) == 5
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, dispatcher.Stop(ctx))
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	forwarder, _ := newTestForwarder(server.URL, testPolicy(1), resilience.Config{MaxFailures: 100})
	dispatcher := NewDispatcher(forwarder, 1, 1, testMetrics, logging.NewNop())
	dispatcher.Start()

	// First record occupies the worker, second fills the queue; give the
	// worker a moment to pick the first one up.
	require.True(t, dispatcher.Enqueue(metricRequest()))
	time.Sleep(50 * time.Millisecond)
	require.True(t, dispatcher.Enqueue(metricRequest()))

	// The queue is full now; this one must be dropped, not block.
	start := time.Now()
	dropped := !dispatcher.Enqueue(metricRequest())
	assert.True(t, dropped)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, dispatcher.Stop(ctx))
}

func TestDispatcherStopDrainsQueue(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	forwarder, _ := newTestForwarder(server.URL, testPolicy(1), resilience.Config{MaxFailures: 100})
	dispatcher := NewDispatcher(forwarder, 32, 1, testMetrics, logging.NewNop())
	dispatcher.Start()

	for i := 0; i < 10; i++ {
		require.True(t, dispatcher.Enqueue(metricRequest()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, dispatcher.Stop(ctx))

	assert.Equal(t, int32(10), atomic.LoadInt32(&requests))
}

func TestDispatcherRejectsAfterStop(t *testing.T) {
	forwarder, _ := newTestForwarder("", testPolicy(1), resilience.Config{})
	dispatcher := NewDispatcher(forwarder, 4, 1, testMetrics, logging.NewNop())
	dispatcher.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, dispatcher.Stop(ctx))

	assert.False(t, dispatcher.Enqueue(metricRequest()))
}

func TestDispatcherStopIsIdempotent(t *testing.T) {
	forwarder, _ := newTestForwarder("", testPolicy(1), resilience.Config{})
	dispatcher := NewDispatcher(forwarder, 4, 1, testMetrics, logging.NewNop())
	dispatcher.Start()

	ctx := context.Background()
	require.NoError(t, dispatcher.Stop(ctx))
	require.NoError(t, dispatcher.Stop(ctx))
}
