package search

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/survivor/internal/domain/candidates"
	"github.com/okian/survivor/internal/domain/model"
	"github.com/okian/survivor/pkg/logger"
	"github.com/okian/survivor/pkg/metrics"
)

// ctxCheckInterval is how many visited nodes pass between context checks.
const ctxCheckInterval = 1 << 10

// Exhaustive enumerates every legal path. Subtrees below each top-week
// candidate run in parallel, each owning its own used set and path buffer.
func (e *Engine) Exhaustive(ctx context.Context, tbl *candidates.Table, sink Sink) (Stats, error) {
	start := time.Now()
	runCtx, cancel := e.withBudget(ctx)
	defer cancel()

	var (
		best       = NewBest()
		paths      atomic.Int64
		deadEnds   atomic.Int64
		underflows atomic.Int64
	)
	base := baseMask(tbl)

	newWalker := func() *walker {
		return &walker{
			weeks:      tbl.Weeks,
			used:       base.clone(),
			path:       make([]model.Pick, 0, len(tbl.Weeks)),
			sink:       sink,
			best:       best,
			paths:      &paths,
			deadEnds:   &deadEnds,
			underflows: &underflows,
		}
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(e.cfg.Workers)

	top := tbl.Weeks[0]
	forked := 0
	for i := range top.IDs {
		if !top.Forced && base.has(top.IDs[i]) {
			continue
		}
		forked++
		g.Go(func() error {
			w := newWalker()
			return w.take(gctx, 0, i)
		})
	}
	if forked == 0 {
		deadEnds.Add(1)
	}
	err := g.Wait()

	st := Stats{
		Engine:     EngineExhaustive,
		Weeks:      len(tbl.Weeks),
		Completed:  paths.Load(),
		Dead:       deadEnds.Load(),
		Underflows: underflows.Load(),
		BestScore:  best.Score(),
		Elapsed:    time.Since(start),
	}
	truncated, err := settle(ctx, runCtx, err)
	st.Truncated = truncated
	metrics.RecordExhaustivePaths(int(st.Completed))
	metrics.RecordExhaustiveDeadEnds(int(st.Dead))
	if err != nil {
		return st, err
	}

	e.logger.Info(ctx, "exhaustive search finished",
		logger.Int("weeks", st.Weeks),
		logger.Int64("paths", st.Completed),
		logger.Int64("dead_ends", st.Dead),
		logger.Float64("best_score", st.BestScore),
		logger.Bool("truncated", st.Truncated),
		logger.Duration("elapsed", st.Elapsed),
	)
	return st, nil
}

// walker is the backtracking state of one call stack.
type walker struct {
	weeks []candidates.Week
	used  mask
	path  []model.Pick
	nodes int

	sink       Sink
	best       *Best
	paths      *atomic.Int64
	deadEnds   *atomic.Int64
	underflows *atomic.Int64
}

// take picks candidate i of week idx, descends, then undoes the pick.
func (w *walker) take(ctx context.Context, idx, i int) error {
	wk := &w.weeks[idx]
	if !wk.Forced {
		w.used.set(wk.IDs[i])
	}
	w.path = append(w.path, wk.Pick(i))

	err := w.descend(ctx, idx+1)

	w.path = w.path[:len(w.path)-1]
	if !wk.Forced {
		w.used.clear(wk.IDs[i])
	}
	return err
}

func (w *walker) descend(ctx context.Context, idx int) error {
	w.nodes++
	if w.nodes%ctxCheckInterval == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if idx == len(w.weeks) {
		w.record(ctx)
		return nil
	}

	wk := &w.weeks[idx]
	if wk.Forced {
		return w.take(ctx, idx, 0)
	}

	branched := false
	for i, id := range wk.IDs {
		if w.used.has(id) {
			continue
		}
		branched = true
		if err := w.take(ctx, idx, i); err != nil {
			return err
		}
	}
	if !branched {
		w.deadEnds.Add(1)
	}
	return nil
}

func (w *walker) record(ctx context.Context) {
	sp := model.NewScoredPath(w.path)
	if sp.Score == 0 && !math.IsInf(sp.LogScore, -1) {
		w.underflows.Add(1)
	}
	w.paths.Add(1)
	w.sink.Offer(ctx, sp)
	w.best.Observe(sp.LogScore)
}
