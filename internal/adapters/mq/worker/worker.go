// Package worker runs trial batches pulled from a queue on a pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/survivor/internal/adapters/mq/queue"
	"github.com/okian/survivor/pkg/logger"
	"github.com/okian/survivor/pkg/metrics"
)

const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// RunFunc processes one batch.
type RunFunc func(ctx context.Context, b queue.Batch) error

// Queue defines how workers receive batches.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Batch
}

// Worker processes batches pulled from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current batch.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	run     RunFunc
	name    string
	onError func(error)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, run RunFunc, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		run:      run,
		name:     "worker",
		onError:  func(error) {},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	batches := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case b, ok := <-batches:
			if !ok {
				return
			}
			if err := w.process(ctx, b); err != nil {
				w.onError(err)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, b queue.Batch) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.run(ctx, b); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "batch_error")
		if ctx.Err() == nil {
			w.logger.Error(ctx, "batch failed",
				logger.Int("batch", b.ID),
				logger.Int("trials", b.Trials),
				logger.Error(err),
			)
		}
		return fmt.Errorf("batch %d: %w", b.ID, err)
	}

	metrics.RecordWorkerBatchProcessed()
	return nil
}

// Pool manages multiple workers sharing one queue. The first failing batch
// cancels the remaining work.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	mu       sync.Mutex
	err      error
	stopOnce sync.Once
	stopped  chan struct{}

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one means
// one worker per CPU.
func NewPool(workerCount int, q Queue, run RunFunc, l logger.Logger) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	if l == nil {
		l = logger.Get().Named("worker-pool")
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		stopped: make(chan struct{}),
		logger:  l,
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, run,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(l),
			WithErrorHandler(p.fail),
		)
	}

	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker and returns the context they run under.
// It is canceled when a batch fails or the parent is done.
func (p *Pool) Start(ctx context.Context) context.Context {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(len(p.workers))
	for _, w := range p.workers {
		go func() {
			defer p.wg.Done()
			w.Run(ctx)
		}()
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))

	go p.reportSystem(ctx)
	return ctx
}

// reportSystem publishes runtime gauges while the pool runs.
func (p *Pool) reportSystem(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopped:
			return
		case <-ticker.C:
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			metrics.UpdateSystemMemoryUsage(ms.Alloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
		}
	}
}

func (p *Pool) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
		if p.cancel != nil {
			p.cancel()
		}
	}
}

// Wait blocks until every worker has returned and reports the first batch error.
func (p *Pool) Wait() error {
	p.wg.Wait()
	p.stopOnce.Do(func() { close(p.stopped) })
	if p.cancel != nil {
		p.cancel()
	}
	metrics.UpdateWorkerActiveCount(0)

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Shutdown closes the queue, stops the workers and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	p.stopOnce.Do(func() { close(p.stopped) })
	metrics.UpdateWorkerActiveCount(0)
	return nil
}
