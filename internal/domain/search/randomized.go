package search

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/okian/survivor/internal/domain/candidates"
	"github.com/okian/survivor/internal/domain/model"
	"github.com/okian/survivor/pkg/logger"
	"github.com/okian/survivor/pkg/metrics"
)

// trialCtxCheck is how many trials pass between context checks.
const trialCtxCheck = 256

type outcome int

const (
	outcomeComplete outcome = iota
	outcomeDead
	outcomePruned
)

// Randomized samples TrialCount paths, drawing each week's pick with
// probability proportional to its win probability among the still unused
// candidates.
func (e *Engine) Randomized(ctx context.Context, tbl *candidates.Table, sink Sink) (Stats, error) {
	if e.cfg.TrialCount == 0 {
		return Stats{Engine: EngineRandomized, Weeks: len(tbl.Weeks)}, fmt.Errorf(
			"%w: trial_count is 0 but %d weeks exceed exhaustive_cutoff_weeks %d",
			ErrInvalidConfig, len(tbl.Weeks), e.cfg.ExhaustiveCutoffWeeks)
	}
	start := time.Now()
	runCtx, cancel := e.withBudget(ctx)
	defer cancel()

	s := newSampler(e.cfg, tbl, sink, e.logger)
	seed := e.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	err := e.executor.Execute(runCtx, s.plan(seed), s.runBatch)

	st := Stats{
		Engine:     EngineRandomized,
		Weeks:      len(tbl.Weeks),
		Trials:     s.trials.Load(),
		Completed:  s.completed.Load(),
		Pruned:     s.pruned.Load(),
		Dead:       s.dead.Load(),
		Underflows: s.underflows.Load(),
		BestScore:  s.best.Score(),
		Elapsed:    time.Since(start),
	}
	truncated, err := settle(ctx, runCtx, err)
	st.Truncated = truncated
	if err != nil {
		return st, err
	}

	e.logger.Info(ctx, "randomized search finished",
		logger.Int("weeks", st.Weeks),
		logger.Int64("trials", st.Trials),
		logger.Int64("completed", st.Completed),
		logger.Int64("pruned", st.Pruned),
		logger.Int64("dead", st.Dead),
		logger.Float64("best_score", st.BestScore),
		logger.Bool("truncated", st.Truncated),
		logger.Duration("elapsed", st.Elapsed),
	)
	return st, nil
}

// sampler holds the read-only inputs and shared accumulators of one run.
type sampler struct {
	cfg    Config
	tbl    *candidates.Table
	sink   Sink
	best   *Best
	bound  bound
	base   mask
	widest int
	logger logger.Logger

	trials     atomic.Int64
	completed  atomic.Int64
	pruned     atomic.Int64
	dead       atomic.Int64
	underflows atomic.Int64
}

func newSampler(cfg Config, tbl *candidates.Table, sink Sink, l logger.Logger) *sampler {
	s := &sampler{
		cfg:    cfg,
		tbl:    tbl,
		sink:   sink,
		best:   NewBest(),
		bound:  newBound(cfg, tbl),
		base:   baseMask(tbl),
		logger: l,
	}
	for i := range tbl.Weeks {
		s.widest = max(s.widest, tbl.Weeks[i].Len())
	}
	return s
}

// plan splits the trial budget into batches.
func (s *sampler) plan(seed uint64) []model.TrialBatch {
	var batches []model.TrialBatch
	for left, id := s.cfg.TrialCount, 0; left > 0; id++ {
		n := min(left, s.cfg.BatchSize)
		batches = append(batches, model.TrialBatch{ID: id, Trials: n, Seed: seed})
		left -= n
	}
	return batches
}

// trialState is private to one batch.
type trialState struct {
	rng   *rand.Rand
	used  mask
	path  []model.Pick
	avail []int
}

type tally struct {
	trials, completed, pruned, dead, underflows int64
}

func (s *sampler) runBatch(ctx context.Context, b model.TrialBatch) error {
	t := &trialState{
		rng:   rand.New(rand.NewPCG(b.Seed, uint64(b.ID))),
		used:  newMask(s.tbl.Competitors()),
		path:  make([]model.Pick, 0, len(s.tbl.Weeks)),
		avail: make([]int, s.widest),
	}

	var c tally
	defer s.flush(ctx, &c)

	for i := 0; i < b.Trials; i++ {
		if i%trialCtxCheck == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		c.trials++
		switch s.sample(ctx, t, &c) {
		case outcomeComplete:
			c.completed++
		case outcomeDead:
			c.dead++
		case outcomePruned:
			c.pruned++
		}
	}
	return nil
}

// sample runs one trial.
func (s *sampler) sample(ctx context.Context, t *trialState, c *tally) outcome {
	t.used.reset(s.base)
	t.path = t.path[:0]
	logScore := 0.0

	for i := range s.tbl.Weeks {
		wk := &s.tbl.Weeks[i]

		k := 0
		if !wk.Forced {
			n, sum := 0, 0.0
			for j, id := range wk.IDs {
				if t.used.has(id) {
					continue
				}
				t.avail[n] = j
				sum += wk.Probs[j]
				n++
			}
			if n == 0 {
				return outcomeDead
			}
			k = t.avail[n-1]
			r := t.rng.Float64() * sum
			for _, j := range t.avail[:n] {
				r -= wk.Probs[j]
				if r < 0 {
					k = j
					break
				}
			}
		}

		next := logScore + math.Log(wk.Probs[k])
		if s.bound != nil && next+s.bound(i) < s.best.Log() {
			return outcomePruned
		}
		logScore = next
		if !wk.Forced {
			t.used.set(wk.IDs[k])
		}
		t.path = append(t.path, wk.Pick(k))
	}

	sp := model.NewScoredPath(t.path)
	if sp.Score == 0 && !math.IsInf(sp.LogScore, -1) {
		c.underflows++
	}
	s.sink.Offer(ctx, sp)
	s.best.Observe(sp.LogScore)
	return outcomeComplete
}

// flush publishes a batch tally and logs progress at each tenth of the budget.
func (s *sampler) flush(ctx context.Context, c *tally) {
	done := s.trials.Add(c.trials)
	s.completed.Add(c.completed)
	s.pruned.Add(c.pruned)
	s.dead.Add(c.dead)
	s.underflows.Add(c.underflows)

	metrics.RecordSearchTrials(int(c.trials))
	metrics.RecordSearchPrunedTrials(int(c.pruned))
	metrics.RecordSearchDeadTrials(int(c.dead))

	tenth := int64(s.cfg.TrialCount / 10)
	if tenth > 0 && (done-c.trials)/tenth != done/tenth {
		s.logger.Info(ctx, "search progress",
			logger.Int64("trials", done),
			logger.Float64("best_score", s.best.Score()),
		)
	}
}
