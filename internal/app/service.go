// Package service provides the recommendation service behind the HTTP API
// and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/survivor/internal/adapters/history"
	"github.com/okian/survivor/internal/adapters/mq/worker"
	"github.com/okian/survivor/internal/adapters/repository"
	"github.com/okian/survivor/internal/adapters/storage"
	"github.com/okian/survivor/internal/domain/candidates"
	"github.com/okian/survivor/internal/domain/dedupe"
	"github.com/okian/survivor/internal/domain/model"
	"github.com/okian/survivor/internal/domain/ranking"
	"github.com/okian/survivor/internal/domain/report"
	"github.com/okian/survivor/internal/domain/search"
	"github.com/okian/survivor/pkg/logger"
	"github.com/okian/survivor/pkg/metrics"
)

// Overrides adjust the search tuning of a single request.
type Overrides struct {
	AdmissionThreshold    *float64 `json:"admission_threshold,omitempty"`
	TrialCount            *int     `json:"trial_count,omitempty"`
	ExhaustiveCutoffWeeks *int     `json:"exhaustive_cutoff_weeks,omitempty"`
	FinalistCount         *int     `json:"finalist_count,omitempty"`
	PruningEnabled        *bool    `json:"pruning_enabled,omitempty"`
	Seed                  *uint64  `json:"seed,omitempty"`
	TimeBudget            string   `json:"time_budget,omitempty"`
}

func (o *Overrides) apply(cfg search.Config) (search.Config, error) {
	if o == nil {
		return cfg, nil
	}
	if o.AdmissionThreshold != nil {
		cfg.AdmissionThreshold = *o.AdmissionThreshold
	}
	if o.TrialCount != nil {
		cfg.TrialCount = *o.TrialCount
	}
	if o.ExhaustiveCutoffWeeks != nil {
		cfg.ExhaustiveCutoffWeeks = *o.ExhaustiveCutoffWeeks
	}
	if o.FinalistCount != nil {
		cfg.FinalistCount = *o.FinalistCount
	}
	if o.PruningEnabled != nil {
		cfg.PruningEnabled = *o.PruningEnabled
	}
	if o.Seed != nil {
		cfg.Seed = *o.Seed
	}
	if o.TimeBudget != "" {
		d, err := time.ParseDuration(o.TimeBudget)
		if err != nil {
			return cfg, fmt.Errorf("%w: time_budget: %v", candidates.ErrInvalidInput, err)
		}
		cfg.TimeBudget = d
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: %v", candidates.ErrInvalidInput, err)
	}
	return cfg, nil
}

// Request describes one recommendation. Zero fields fall back to the
// service defaults.
type Request struct {
	Probabilities []model.ProbabilityRow `json:"probabilities,omitempty"`
	// FirstWeek defaults to the week after the last locked pick.
	FirstWeek int                `json:"first_week,omitempty"`
	LastWeek  int                `json:"last_week,omitempty"`
	Locked    map[int]model.Pick `json:"locked,omitempty"`
	Forced    map[int]model.Pick `json:"forced,omitempty"`
	Search    *Overrides         `json:"search,omitempty"`
}

// Recommendation is the outcome of one run.
type Recommendation struct {
	ID          string           `json:"id,omitempty"`
	FirstWeek   int              `json:"first_week"`
	LastWeek    int              `json:"last_week"`
	Picks       []model.Pick     `json:"picks"`
	Best        model.ScoredPath `json:"best"`
	Frequencies []ranking.Week   `json:"frequencies"`
	Report      string           `json:"report"`
	Stats       search.Stats     `json:"stats"`
	OutputDir   string           `json:"output_dir,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
}

const stopTimeout = 30 * time.Second

// Service runs recommendations.
type Service struct {
	mu sync.RWMutex

	guard    dedupe.Guard
	executor *worker.Executor
	history  *history.Store
	source  Source

	workerCount  int
	queueSize    int
	inflightSize int
	search       search.Config
	startWeek    int
	lastWeek     int
	locked       map[int]model.Pick
	forced       map[int]model.Pick
	outputDir    string

	started bool
	runs    atomic.Int64
	failed  atomic.Int64
	last    atomic.Pointer[Recommendation]
	now     func() time.Time

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    1024,
		inflightSize: 8,
		search:       search.DefaultConfig(),
		startWeek:    1,
		lastWeek:     18,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.guard = dedupe.NewInMemoryGuard(dedupe.WithMaxSize(s.inflightSize))
	s.executor = worker.NewExecutor(s.workerCount,
		worker.WithQueueCapacity(s.queueSize),
		worker.WithExecutorLogger(s.logger.Named("worker-pool")),
	)
	metrics.UpdateWorkerActiveCount(0)

	s.started = true
	s.logger.Info(ctx, "recommendation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("inflightSize", s.inflightSize),
		logger.Bool("history", s.history != nil),
	)
	return nil
}

// Stop marks the service stopped and shuts down the worker pools of running
// randomized searches. Those recommendations fail with ErrNotStarted.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := s.executor.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pools did not stop cleanly", logger.Error(err))
	}
	s.logger.Info(ctx, "recommendation service stopped")
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Recommend validates req, searches the remaining weeks and assembles the
// recommendation. Identical concurrent requests fail with ErrRunInProgress.
func (s *Service) Recommend(ctx context.Context, req Request) (*Recommendation, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}

	rec, err := s.recommend(ctx, req)
	switch {
	case err == nil:
		s.runs.Add(1)
		s.last.Store(rec)
		metrics.RecordRecommendation("ok")
	case errors.Is(err, ErrRunInProgress), errors.Is(err, ErrBusy):
		metrics.RecordRecommendation("rejected")
	case errors.Is(err, search.ErrNoFeasiblePath):
		s.failed.Add(1)
		metrics.RecordRecommendation("no_feasible_path")
	case errors.Is(err, search.ErrSearchIncomplete):
		s.failed.Add(1)
		metrics.RecordRecommendation("incomplete")
	case errors.Is(err, candidates.ErrInvalidInput):
		s.failed.Add(1)
		metrics.RecordRecommendation("invalid_input")
	default:
		s.failed.Add(1)
		metrics.RecordRecommendation("error")
		metrics.RecordErrorByComponent("service", "recommend")
	}
	return rec, err
}

func (s *Service) recommend(ctx context.Context, req Request) (*Recommendation, error) {
	cfg, err := req.Search.apply(s.search)
	if err != nil {
		return nil, err
	}

	rows := req.Probabilities
	if len(rows) == 0 {
		if s.source == nil {
			return nil, fmt.Errorf("%w: no probabilities supplied", candidates.ErrInvalidInput)
		}
		if rows, err = s.source(ctx); err != nil {
			return nil, fmt.Errorf("load probabilities: %w", err)
		}
	}

	in := s.input(req, rows, cfg.AdmissionThreshold)

	key, err := dedupe.Key(struct {
		In  candidates.Input
		Cfg search.Config
	}{in, cfg})
	if err != nil {
		return nil, fmt.Errorf("request key: %w", err)
	}
	if err := s.guard.Acquire(ctx, key); err != nil {
		if errors.Is(err, dedupe.ErrInFlight) {
			return nil, fmt.Errorf("%w: weeks %d-%d", ErrRunInProgress, in.FirstWeek, in.LastWeek)
		}
		return nil, fmt.Errorf("%w: %v", ErrBusy, err)
	}
	defer s.guard.Release(ctx, key)

	tbl, err := candidates.Build(in)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	executor := s.executor
	s.mu.RUnlock()

	engine, err := search.New(cfg,
		search.WithExecutor(executor),
		search.WithLogger(s.logger.Named("search")),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", candidates.ErrInvalidInput, err)
	}

	resOpts := []repository.Option{repository.WithWatermarks(cfg.ReservoirHighWatermark, cfg.ReservoirLowWatermark)}
	if cfg.Seed != 0 {
		resOpts = append(resOpts, repository.WithSeed(cfg.Seed))
	}
	sink := repository.NewReservoir(resOpts...)

	s.logger.Info(ctx, "recommendation started",
		logger.Int("firstWeek", in.FirstWeek),
		logger.Int("lastWeek", in.LastWeek),
		logger.Int("locked", len(in.Locked)),
		logger.Int("forced", len(in.Forced)),
	)

	res, err := engine.Run(ctx, tbl, sink)
	switch {
	case errors.Is(err, worker.ErrStopped):
		return nil, fmt.Errorf("%w: %v", ErrNotStarted, err)
	case errors.Is(err, search.ErrInvalidConfig):
		return nil, fmt.Errorf("%w: %v", candidates.ErrInvalidInput, err)
	case err != nil:
		return nil, err
	}

	out, err := report.Assemble(tbl.Prefix, res.Finalists, s.now())
	if err != nil {
		return nil, err
	}

	rec := &Recommendation{
		FirstWeek:   in.FirstWeek,
		LastWeek:    in.LastWeek,
		Picks:       out.Picks,
		Best:        out.Best,
		Frequencies: out.Frequencies,
		Report:      out.Text,
		Stats:       res.Stats,
		GeneratedAt: out.GeneratedAt,
	}

	if s.outputDir != "" {
		dir, err := storage.WriteRun(s.outputDir, storage.Run{
			SecondChance: s.startWeek > 1,
			Week:         in.FirstWeek,
			Score:        out.Best.Score,
			Picks:        out.Picks,
			Report:       out.Text,
		})
		if err != nil {
			return nil, fmt.Errorf("write run: %w", err)
		}
		rec.OutputDir = dir
	}

	if s.history != nil {
		run := toRun(rec, len(res.Finalists), in.Locked)
		if err := s.history.Save(ctx, run); err != nil {
			return nil, err
		}
		rec.ID = run.ID
	}

	s.logger.Info(ctx, "recommendation finished",
		logger.String("id", rec.ID),
		logger.String("engine", rec.Stats.Engine),
		logger.Float64("bestScore", rec.Best.Score),
		logger.Int("finalists", len(res.Finalists)),
		logger.Int("retained", sink.Count(ctx)),
		logger.Int("reservoirTrims", sink.Trims()),
		logger.Bool("truncated", rec.Stats.Truncated),
	)
	return rec, nil
}

// input merges req with the service defaults.
func (s *Service) input(req Request, rows []model.ProbabilityRow, threshold float64) candidates.Input {
	locked := req.Locked
	if locked == nil {
		locked = s.locked
	}
	forced := req.Forced
	if forced == nil {
		forced = s.forced
	}

	first := req.FirstWeek
	if first == 0 {
		first = s.startWeek
		for w := range locked {
			first = max(first, w+1)
		}
	}
	last := req.LastWeek
	if last == 0 {
		last = s.lastWeek
	}

	return candidates.Input{
		Rows:      rows,
		FirstWeek: first,
		LastWeek:  last,
		Locked:    locked,
		Forced:    forced,
		Threshold: threshold,
	}
}

func toRun(rec *Recommendation, finalists int, locked map[int]model.Pick) *history.Run {
	run := &history.Run{
		CreatedAt:    rec.GeneratedAt,
		FirstWeek:    rec.FirstWeek,
		LastWeek:     rec.LastWeek,
		Engine:       rec.Stats.Engine,
		BestScore:    rec.Best.Score,
		BestLogScore: rec.Best.LogScore,
		Trials:       rec.Stats.Trials,
		Completed:    rec.Stats.Completed,
		Pruned:       rec.Stats.Pruned,
		Dead:         rec.Stats.Dead,
		Finalists:    finalists,
		Truncated:    rec.Stats.Truncated,
		ElapsedMS:    rec.Stats.Elapsed.Milliseconds(),
		Report:       rec.Report,
		OutputDir:    rec.OutputDir,
	}
	for _, p := range rec.Picks {
		lp, ok := locked[p.Week]
		run.Picks = append(run.Picks, history.RunPick{
			Week:       p.Week,
			Competitor: p.Competitor,
			Opponent:   p.Opponent,
			WinProb:    p.WinProb,
			Locked:     ok && lp.Competitor == p.Competitor,
		})
	}
	return run
}

// Run returns a stored run by id.
func (s *Service) Run(ctx context.Context, id string) (*history.Run, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.Get(ctx, id)
}

// LatestRun returns the most recent stored run.
func (s *Service) LatestRun(ctx context.Context) (*history.Run, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.Latest(ctx)
}

// Runs lists up to limit stored runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]history.Run, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.List(ctx, limit)
}

// Last returns the most recent recommendation of this process.
func (s *Service) Last() (*Recommendation, bool) {
	rec := s.last.Load()
	return rec, rec != nil
}

// Stats is a point-in-time view of the service for /stats.
type Stats struct {
	Started      bool `json:"started"`
	WorkerCount  int  `json:"worker_count"`
	QueueSize    int  `json:"queue_size"`
	InflightSize int  `json:"inflight_size"`
	// Inflight counts recommendations currently holding the dedupe guard.
	Inflight int64 `json:"inflight"`
	Runs     int64 `json:"runs"`
	Failed   int64 `json:"failed"`
	History  bool  `json:"history"`
	// Last* describe the most recent successful recommendation, if any.
	LastRunID       string     `json:"last_run_id,omitempty"`
	LastBestScore   *float64   `json:"last_best_score,omitempty"`
	LastGeneratedAt *time.Time `json:"last_generated_at,omitempty"`
}

// Stats reports run counters and the latest recommendation.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Started:      s.started,
		WorkerCount:  s.workerCount,
		QueueSize:    s.queueSize,
		InflightSize: s.inflightSize,
		Runs:         s.runs.Load(),
		Failed:       s.failed.Load(),
		History:      s.history != nil,
	}
	if s.started {
		st.Inflight = s.guard.Size()
	}
	if rec := s.last.Load(); rec != nil {
		score, at := rec.Best.Score, rec.GeneratedAt
		st.LastRunID = rec.ID
		st.LastBestScore = &score
		st.LastGeneratedAt = &at
	}
	return st
}

// Size returns the number of running recommendations.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.guard == nil {
		return 0
	}
	return s.guard.Size()
}
