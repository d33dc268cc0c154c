package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/okian/survivor/internal/domain/model"
)

// BatchFunc runs one batch of randomized trials.
type BatchFunc func(ctx context.Context, b model.TrialBatch) error

// Executor decides where trial batches run.
type Executor interface {
	Execute(ctx context.Context, batches []model.TrialBatch, run BatchFunc) error
}

// GroupExecutor runs batches on an errgroup bounded to a worker count.
type GroupExecutor struct {
	workers int
}

// NewGroupExecutor returns an executor running at most workers batches at once.
func NewGroupExecutor(workers int) *GroupExecutor {
	if workers < 1 {
		workers = 1
	}
	return &GroupExecutor{workers: workers}
}

// Execute implements Executor.
func (g *GroupExecutor) Execute(ctx context.Context, batches []model.TrialBatch, run BatchFunc) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, b := range batches {
		eg.Go(func() error { return run(ctx, b) })
	}
	return eg.Wait()
}
