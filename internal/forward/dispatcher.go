package forward

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/fleetsight/collector/internal/logging"
	"github.com/fleetsight/collector/internal/monitoring"
)

// Dispatcher feeds accepted records to forwarding workers through a bounded
// queue. A full queue drops the record on the spot: forwarding must never
// apply backpressure to ingestion. Workers run each delivery on a detached
// context so HTTP request cancellation cannot abort an in-flight forward.
type Dispatcher struct {
	forwarder *Forwarder
	queue     chan Request
	workers   int
	metrics   *monitoring.Metrics
	log       *logging.Logger

	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewDispatcher creates a dispatcher with the given queue capacity and
// worker count.
func NewDispatcher(forwarder *Forwarder, queueSize, workers int, metrics *monitoring.Metrics, log *logging.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 4
	}
	return &Dispatcher{
		forwarder: forwarder,
		queue:     make(chan Request, queueSize),
		workers:   workers,
		metrics:   metrics,
		log:       log,
	}
}

// Start launches the forwarding workers.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	d.log.Info("forward dispatcher started",
		zap.Int("workers", d.workers),
		zap.Int("queue_capacity", cap(d.queue)))
}

// Enqueue hands a record to the workers without blocking. It reports false
// when the record was dropped, either because the queue is full or because
// the dispatcher is shutting down.
func (d *Dispatcher) Enqueue(req Request) bool {
	if d.closed.Load() {
		return false
	}

	select {
	case d.queue <- req:
		d.metrics.SetForwardQueueDepth(len(d.queue))
		return true
	default:
		d.log.Warn("forward queue full, dropping record",
			zap.String("kind", string(req.Kind)),
			zap.String("device_id", req.DeviceID))
		d.metrics.IncForwardDropped(string(req.Kind))
		return false
	}
}

// Stop closes the queue and waits for in-flight deliveries to drain, up to
// the deadline on ctx. Callers must stop accepting ingestion first.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if d.closed.Swap(true) {
		return nil
	}
	close(d.queue)

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info("forward dispatcher drained")
		return nil
	case <-ctx.Done():
		d.log.Warn("forward dispatcher stopped before draining", zap.Int("pending", len(d.queue)))
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()

	for req := range d.queue {
		d.dispatch(req)
		d.metrics.SetForwardQueueDepth(len(d.queue))
	}
}

func (d *Dispatcher) dispatch(req Request) {
	ctx := context.Background()
	if budget := d.forwarder.Budget(); budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	d.forwarder.Forward(ctx, req)
}
