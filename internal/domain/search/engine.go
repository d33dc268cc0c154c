// Package search finds the highest-probability no-repeat pick sequence over
// a candidate table, by exhaustive enumeration on short horizons and by
// weighted random sampling with branch-and-bound pruning on long ones.
package search

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/okian/survivor/internal/domain/candidates"
	"github.com/okian/survivor/internal/domain/model"
	"github.com/okian/survivor/pkg/logger"
	"github.com/okian/survivor/pkg/metrics"
)

// Sink retains explored paths. Implementations must be safe for
// concurrent use.
type Sink interface {
	Offer(ctx context.Context, path model.ScoredPath) bool
	TopN(ctx context.Context, n int) ([]model.ScoredPath, error)
	Count(ctx context.Context) int
}

// Stats describes one search run.
type Stats struct {
	Engine     string        `json:"engine"`
	Weeks      int           `json:"weeks"`
	Trials     int64         `json:"trials,omitempty"`
	Completed  int64         `json:"completed"`
	Pruned     int64         `json:"pruned,omitempty"`
	Dead       int64         `json:"dead"`
	Underflows int64         `json:"underflows,omitempty"`
	BestScore  float64       `json:"best_score"`
	Truncated  bool          `json:"truncated,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Result is the outcome of Run.
type Result struct {
	Stats     Stats
	Finalists []model.ScoredPath
}

// Engine runs searches with a fixed configuration.
type Engine struct {
	cfg      Config
	executor Executor
	logger   logger.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithExecutor sets how randomized trial batches are executed.
func WithExecutor(e Executor) Option {
	return func(en *Engine) {
		if e != nil {
			en.executor = e
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(en *Engine) {
		if l != nil {
			en.logger = l
		}
	}
}

// New validates cfg and builds an engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU()
	}
	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.executor == nil {
		e.executor = NewGroupExecutor(cfg.Workers)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("search")
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Run picks the engine for the horizon, fills sink and returns the finalists.
// It returns ErrNoFeasiblePath when no path survives every week, and
// ErrSearchIncomplete when the budget expired before any path was found.
func (e *Engine) Run(ctx context.Context, tbl *candidates.Table, sink Sink) (Result, error) {
	var (
		st  Stats
		err error
	)
	if len(tbl.Weeks) <= e.cfg.ExhaustiveCutoffWeeks {
		st, err = e.Exhaustive(ctx, tbl, sink)
	} else {
		st, err = e.Randomized(ctx, tbl, sink)
	}
	if err != nil {
		return Result{Stats: st}, err
	}

	metrics.RecordSearchDuration(st.Engine, st.Elapsed.Seconds())
	metrics.RecordScoreUnderflows(int(st.Underflows))

	if sink.Count(ctx) == 0 && st.Truncated {
		metrics.RecordErrorByComponent("search", "incomplete")
		return Result{Stats: st}, fmt.Errorf("%w: %d trials in %s", ErrSearchIncomplete, st.Trials, st.Elapsed.Round(time.Millisecond))
	}
	if sink.Count(ctx) == 0 {
		metrics.RecordErrorByComponent("search", "no_feasible_path")
		return Result{Stats: st}, fmt.Errorf("%w: %d weeks from week %d", ErrNoFeasiblePath, len(tbl.Weeks), tbl.Weeks[0].Week)
	}
	metrics.UpdateBestScore(st.BestScore)

	finalists, err := sink.TopN(ctx, e.cfg.FinalistCount)
	if err != nil {
		return Result{Stats: st}, fmt.Errorf("select finalists: %w", err)
	}
	return Result{Stats: st, Finalists: finalists}, nil
}

// withBudget applies the configured time budget.
func (e *Engine) withBudget(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.TimeBudget > 0 {
		return context.WithTimeout(ctx, e.cfg.TimeBudget)
	}
	return context.WithCancel(ctx)
}

// settle maps a run error to truncation when only the budget expired.
func settle(parent, run context.Context, err error) (truncated bool, _ error) {
	if err == nil {
		return run.Err() != nil && parent.Err() == nil, nil
	}
	if perr := parent.Err(); perr != nil {
		return false, perr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true, nil
	}
	return false, err
}

// baseMask seeds the used set with reserved competitors.
func baseMask(tbl *candidates.Table) mask {
	m := newMask(tbl.Competitors())
	for _, id := range tbl.Reserved {
		m.set(id)
	}
	return m
}
