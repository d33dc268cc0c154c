package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/okian/survivor/internal/adapters/mq/queue"
	"github.com/okian/survivor/internal/domain/model"
	"github.com/okian/survivor/internal/domain/search"
	"github.com/okian/survivor/pkg/logger"
)

// ErrStopped is returned by Execute once the executor has been shut down.
var ErrStopped = errors.New("executor stopped")

// Executor runs search batches through a bounded queue and a worker pool.
// Each Execute call owns its own queue and pool; Shutdown stops all of them.
type Executor struct {
	workers  int
	capacity int
	logger   logger.Logger

	mu      sync.Mutex
	pools   map[*Pool]struct{}
	stopped bool
}

var _ search.Executor = (*Executor)(nil)

// NewExecutor returns an executor backed by workers goroutines.
func NewExecutor(workers int, opts ...ExecutorOption) *Executor {
	e := &Executor{workers: workers, pools: make(map[*Pool]struct{})}
	for _, opt := range opts {
		opt(e)
	}
	if e.capacity == 0 {
		e.capacity = 2 * max(workers, 1)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("worker-pool")
	}
	return e
}

// Execute implements search.Executor.
func (e *Executor) Execute(ctx context.Context, batches []model.TrialBatch, run search.BatchFunc) error {
	q := queue.NewInMemoryQueue(queue.WithCapacity(e.capacity))
	pool := NewPool(e.workers, q, RunFunc(run), e.logger)

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	poolCtx := pool.Start(ctx)
	e.pools[pool] = struct{}{}
	e.mu.Unlock()

	for _, b := range batches {
		if err := q.Put(poolCtx, b); err != nil {
			break
		}
	}
	_ = q.Close()

	err := pool.Wait()

	e.mu.Lock()
	delete(e.pools, pool)
	stopped := e.stopped
	e.mu.Unlock()

	switch {
	case stopped:
		return ErrStopped
	case err != nil:
		return err
	}
	return ctx.Err()
}

// Shutdown stops every running pool and rejects later Execute calls.
// Batches already handed to a worker finish first.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.stopped = true
	pools := make([]*Pool, 0, len(e.pools))
	for p := range e.pools {
		pools = append(pools, p)
	}
	e.mu.Unlock()

	var errs []error
	for _, p := range pools {
		if err := p.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(pools) > 0 {
		e.logger.Info(ctx, "executor stopped running pools", logger.Int("pools", len(pools)))
	}
	return errors.Join(errs...)
}
