package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/survivor/internal/adapters/history"
	service "github.com/okian/survivor/internal/app"
	"github.com/okian/survivor/internal/config"
	"github.com/okian/survivor/internal/domain/candidates"
	"github.com/okian/survivor/internal/domain/model"
	"github.com/okian/survivor/internal/domain/search"
	"github.com/okian/survivor/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// threeWeeks has a known best path A -> C -> E scoring 0.504.
func threeWeeks() []model.ProbabilityRow {
	return []model.ProbabilityRow{
		{Week: 1, Home: "A", Away: "X", HomeWinProb: 0.9, AwayWinProb: 0.1},
		{Week: 1, Home: "B", Away: "Y", HomeWinProb: 0.6, AwayWinProb: 0.4},
		{Week: 2, Home: "C", Away: "Z", HomeWinProb: 0.8, AwayWinProb: 0.2},
		{Week: 2, Home: "D", Away: "W", HomeWinProb: 0.55, AwayWinProb: 0.45},
		{Week: 3, Home: "E", Away: "V", HomeWinProb: 0.7, AwayWinProb: 0.3},
		{Week: 3, Home: "F", Away: "U", HomeWinProb: 0.6, AwayWinProb: 0.4},
	}
}

func searchConfig() search.Config {
	cfg := search.DefaultConfig()
	cfg.AdmissionThreshold = 0.5
	cfg.TrialCount = 5000
	cfg.BatchSize = 500
	cfg.Seed = 7
	return cfg
}

func started(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithWorkerCount(2),
		service.WithSearchConfig(searchConfig()),
		service.WithSeason(1, 3),
		service.WithSource(service.StaticSource(threeWeeks())),
	}
	svc := service.New(append(base, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("When recommending before start", func() {
			_, err := svc.Recommend(context.Background(), service.Request{})

			Convey("Then it should fail", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it should be marked as started", func() {
				stats := svc.Stats()
				So(stats.Started, ShouldBeTrue)
				So(stats.Inflight, ShouldEqual, 0)
				So(stats.LastBestScore, ShouldBeNil)
				So(svc.Size(), ShouldEqual, 0)
			})

			Convey("And starting twice is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})
	})

	Convey("Given a started service that is stopped", t, func() {
		svc := started()
		svc.Stop()

		Convey("When recommending", func() {
			_, err := svc.Recommend(context.Background(), service.Request{})

			Convey("Then it is rejected as not started", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.Stats().Started, ShouldBeFalse)
			})
		})

		Convey("When started again", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			defer svc.Stop()
			cutoff := 0
			rec, err := svc.Recommend(context.Background(), service.Request{Search: &service.Overrides{ExhaustiveCutoffWeeks: &cutoff}})

			Convey("Then randomized searches run on fresh worker pools", func() {
				So(err, ShouldBeNil)
				So(rec.Stats.Engine, ShouldEqual, search.EngineRandomized)
			})
		})
	})
}

func TestService_Recommend(t *testing.T) {
	Convey("Given a started service over a three week table", t, func() {
		svc := started()
		defer svc.Stop()
		ctx := context.Background()

		Convey("When recommending with the exhaustive engine", func() {
			rec, err := svc.Recommend(ctx, service.Request{})

			Convey("Then the best path is A, C, E", func() {
				So(err, ShouldBeNil)
				So(rec.Stats.Engine, ShouldEqual, search.EngineExhaustive)
				So(rec.Best.Score, ShouldAlmostEqual, 0.504, 1e-9)
				So(rec.Picks, ShouldHaveLength, 3)
				So(rec.Picks[0].Competitor, ShouldEqual, "A")
				So(rec.Picks[1].Competitor, ShouldEqual, "C")
				So(rec.Picks[2].Competitor, ShouldEqual, "E")
				So(rec.Report, ShouldContainSubstring, "Week 1: A over X")
			})

			Convey("And the service remembers it", func() {
				last, ok := svc.Last()
				So(ok, ShouldBeTrue)
				So(last.Best.Score, ShouldAlmostEqual, rec.Best.Score, 1e-12)
				stats := svc.Stats()
				So(stats.Runs, ShouldEqual, 1)
				So(stats.LastRunID, ShouldEqual, rec.ID)
				So(*stats.LastBestScore, ShouldAlmostEqual, rec.Best.Score, 1e-12)
			})
		})

		Convey("When the randomized engine is forced", func() {
			cutoff := 0
			rec, err := svc.Recommend(ctx, service.Request{Search: &service.Overrides{ExhaustiveCutoffWeeks: &cutoff}})

			Convey("Then it finds the same best path", func() {
				So(err, ShouldBeNil)
				So(rec.Stats.Engine, ShouldEqual, search.EngineRandomized)
				So(rec.Best.Score, ShouldAlmostEqual, 0.504, 1e-9)
			})
		})

		Convey("When week one is locked", func() {
			rec, err := svc.Recommend(ctx, service.Request{
				Locked: map[int]model.Pick{1: {Week: 1, Competitor: "B", Opponent: "Y", WinProb: 0.6}},
			})

			Convey("Then the search starts at week two behind the locked prefix", func() {
				So(err, ShouldBeNil)
				So(rec.FirstWeek, ShouldEqual, 2)
				So(rec.Picks, ShouldHaveLength, 3)
				So(rec.Picks[0].Competitor, ShouldEqual, "B")
				So(rec.Best.Picks, ShouldHaveLength, 2)
			})
		})

		Convey("When no candidate clears the threshold", func() {
			threshold := 0.95
			_, err := svc.Recommend(ctx, service.Request{Search: &service.Overrides{AdmissionThreshold: &threshold}})

			Convey("Then no feasible path is reported", func() {
				So(errors.Is(err, search.ErrNoFeasiblePath), ShouldBeTrue)
				So(svc.Stats().Failed, ShouldEqual, 1)
			})
		})

		Convey("When a probability is out of range", func() {
			rows := threeWeeks()
			rows[0].HomeWinProb = 1.5
			_, err := svc.Recommend(ctx, service.Request{Probabilities: rows})

			Convey("Then the input is rejected", func() {
				So(errors.Is(err, candidates.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When an override has a bad duration", func() {
			_, err := svc.Recommend(ctx, service.Request{Search: &service.Overrides{TimeBudget: "soon"}})

			Convey("Then the input is rejected", func() {
				So(errors.Is(err, candidates.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When the randomized engine is forced with zero trials", func() {
			cutoff, trials := 0, 0
			_, err := svc.Recommend(ctx, service.Request{Search: &service.Overrides{
				ExhaustiveCutoffWeeks: &cutoff,
				TrialCount:            &trials,
			}})

			Convey("Then the input is rejected rather than reported infeasible", func() {
				So(errors.Is(err, candidates.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(err, search.ErrNoFeasiblePath), ShouldBeFalse)
			})
		})

		Convey("When history is requested without a store", func() {
			_, err := svc.LatestRun(ctx)

			Convey("Then history is reported disabled", func() {
				So(errors.Is(err, service.ErrHistoryDisabled), ShouldBeTrue)
			})
		})
	})
}

func TestService_Persistence(t *testing.T) {
	Convey("Given a service with an output dir and history", t, func() {
		dir := t.TempDir()
		store, err := history.Open(":memory:")
		So(err, ShouldBeNil)
		defer func() { _ = store.Close() }()

		svc := started(service.WithOutputDir(dir), service.WithHistory(store))
		defer svc.Stop()
		ctx := context.Background()

		Convey("When a recommendation finishes", func() {
			rec, err := svc.Recommend(ctx, service.Request{})
			So(err, ShouldBeNil)

			Convey("Then the run files are written", func() {
				So(filepath.Dir(rec.OutputDir), ShouldEqual, filepath.Join(dir, "first_chance", "week1"))
				So(filepath.Base(rec.OutputDir), ShouldStartWith, "504")
				_, err := os.Stat(filepath.Join(rec.OutputDir, "picks.csv"))
				So(err, ShouldBeNil)
				_, err = os.Stat(filepath.Join(rec.OutputDir, "weekly_options.txt"))
				So(err, ShouldBeNil)
			})

			Convey("Then the run is stored with its picks", func() {
				So(rec.ID, ShouldNotBeEmpty)
				run, err := svc.Run(ctx, rec.ID)
				So(err, ShouldBeNil)
				So(run.Picks, ShouldHaveLength, 3)
				So(run.BestScore, ShouldAlmostEqual, 0.504, 1e-9)

				latest, err := svc.LatestRun(ctx)
				So(err, ShouldBeNil)
				So(latest.ID, ShouldEqual, rec.ID)

				runs, err := svc.Runs(ctx, 10)
				So(err, ShouldBeNil)
				So(runs, ShouldHaveLength, 1)
			})
		})
	})
}

func TestFromConfig(t *testing.T) {
	Convey("Given a config with history and inline picks", t, func() {
		cfg := config.New()
		cfg.Storage.HistoryDSN = filepath.Join(t.TempDir(), "runs.db")
		cfg.Storage.OutputDir = ""
		cfg.Storage.ProbabilitiesPath = filepath.Join(t.TempDir(), "missing.csv")
		cfg.Search = searchConfig()
		cfg.Season.LastWeek = 3
		cfg.WorkerCount = 2

		svc, closeFn, err := service.FromConfig(cfg, logger.Get())
		So(err, ShouldBeNil)
		defer func() { _ = closeFn() }()
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When recommending with rows in the request", func() {
			rec, err := svc.Recommend(context.Background(), service.Request{Probabilities: threeWeeks()})

			Convey("Then the run is stored", func() {
				So(err, ShouldBeNil)
				So(rec.ID, ShouldNotBeEmpty)
				So(svc.Stats().History, ShouldBeTrue)
			})
		})

		Convey("When neither probabilities nor schedule files exist", func() {
			_, err := svc.Recommend(context.Background(), service.Request{})

			Convey("Then loading fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "load probabilities")
			})
		})
	})
}
