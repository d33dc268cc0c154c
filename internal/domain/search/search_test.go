package search_test

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/okian/survivor/internal/adapters/repository"
	"github.com/okian/survivor/internal/domain/candidates"
	"github.com/okian/survivor/internal/domain/model"
	"github.com/okian/survivor/internal/domain/search"
	"github.com/okian/survivor/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// threeWeekTable is the worked example: the best path is A, C, E at 0.504.
func threeWeekTable(t *testing.T) *candidates.Table {
	t.Helper()
	rows := []model.ProbabilityRow{
		{Week: 1, Home: "A", Away: "X1", HomeWinProb: 0.9, AwayWinProb: 0.1},
		{Week: 1, Home: "B", Away: "X2", HomeWinProb: 0.6, AwayWinProb: 0.4},
		{Week: 2, Home: "C", Away: "X3", HomeWinProb: 0.8, AwayWinProb: 0.2},
		{Week: 2, Home: "D", Away: "X4", HomeWinProb: 0.55, AwayWinProb: 0.45},
		{Week: 3, Home: "E", Away: "X5", HomeWinProb: 0.7, AwayWinProb: 0.3},
		{Week: 3, Home: "F", Away: "X6", HomeWinProb: 0.6, AwayWinProb: 0.4},
	}
	tbl, err := candidates.Build(candidates.Input{Rows: rows, FirstWeek: 1, LastWeek: 3, Threshold: 0.5})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return tbl
}

// seasonTable builds a league where the same teams meet in random pairings
// every week, so competitors compete for reuse across weeks.
func seasonTable(t *testing.T, seed uint64, teams, weeks int, threshold float64, locked map[int]model.Pick) *candidates.Table {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed+1))
	codes := make([]string, teams)
	for i := range codes {
		codes[i] = string(rune('A'+i/26)) + string(rune('A'+i%26))
	}
	var rows []model.ProbabilityRow
	for w := 1; w <= weeks; w++ {
		perm := rng.Perm(teams)
		for g := 0; g+1 < teams; g += 2 {
			p := math.Round((0.1+0.8*rng.Float64())*1000) / 1000
			rows = append(rows, model.ProbabilityRow{
				Week: w, Home: codes[perm[g]], Away: codes[perm[g+1]],
				HomeWinProb: p, AwayWinProb: math.Round((1-p)*1000) / 1000,
			})
		}
	}
	tbl, err := candidates.Build(candidates.Input{Rows: rows, FirstWeek: 1, LastWeek: weeks, Threshold: threshold, Locked: locked})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return tbl
}

func testConfig() search.Config {
	cfg := search.DefaultConfig()
	cfg.Workers = 1
	cfg.Seed = 42
	cfg.TrialCount = 20_000
	cfg.BatchSize = 1000
	return cfg
}

func run(t *testing.T, cfg search.Config, tbl *candidates.Table) (search.Result, *repository.Reservoir, error) {
	t.Helper()
	eng, err := search.New(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	res := repository.NewReservoir(repository.WithWatermarks(cfg.ReservoirHighWatermark, cfg.ReservoirLowWatermark))
	out, err := eng.Run(context.Background(), tbl, res)
	return out, res, err
}

func assertLegal(paths []model.ScoredPath, weeks []candidates.Week) {
	for _, p := range paths {
		So(len(p.Picks), ShouldEqual, len(weeks))
		seen := map[string]bool{}
		product := 1.0
		for i, pk := range p.Picks {
			So(pk.Week, ShouldEqual, weeks[i].Week)
			So(seen[pk.Competitor], ShouldBeFalse)
			seen[pk.Competitor] = true
			product *= pk.WinProb
		}
		So(p.Score, ShouldAlmostEqual, product, 1e-12)
	}
}

func TestWorkedExample(t *testing.T) {
	Convey("Given the three week table", t, func() {
		tbl := threeWeekTable(t)

		Convey("When the exhaustive engine runs", func() {
			cfg := testConfig()
			out, _, err := run(t, cfg, tbl)

			Convey("Then it finds A, C, E at 0.504 over all eight paths", func() {
				So(err, ShouldBeNil)
				So(out.Stats.Engine, ShouldEqual, search.EngineExhaustive)
				So(out.Stats.Completed, ShouldEqual, int64(8))
				So(out.Finalists[0].Key, ShouldEqual, "1:A|2:C|3:E")
				So(out.Finalists[0].Score, ShouldAlmostEqual, 0.504, 1e-12)
				So(out.Stats.BestScore, ShouldAlmostEqual, 0.504, 1e-12)
				So(len(out.Finalists), ShouldEqual, 8)
				assertLegal(out.Finalists, tbl.Weeks)
			})
		})

		Convey("When the randomized engine runs", func() {
			cfg := testConfig()
			cfg.ExhaustiveCutoffWeeks = 0
			out, _, err := run(t, cfg, tbl)

			Convey("Then it finds the same best path", func() {
				So(err, ShouldBeNil)
				So(out.Stats.Engine, ShouldEqual, search.EngineRandomized)
				So(out.Stats.Trials, ShouldEqual, int64(cfg.TrialCount))
				So(out.Finalists[0].Key, ShouldEqual, "1:A|2:C|3:E")
				So(out.Finalists[0].Score, ShouldAlmostEqual, 0.504, 1e-12)
				assertLegal(out.Finalists, tbl.Weeks)
			})
		})
	})
}

func TestDeadEnds(t *testing.T) {
	Convey("Given a week whose only candidate is already used", t, func() {
		rows := []model.ProbabilityRow{
			{Week: 1, Home: "A", Away: "X", HomeWinProb: 0.9, AwayWinProb: 0.1},
			{Week: 1, Home: "B", Away: "Y", HomeWinProb: 0.7, AwayWinProb: 0.3},
			{Week: 2, Home: "A", Away: "Z", HomeWinProb: 0.8, AwayWinProb: 0.2},
		}
		tbl, err := candidates.Build(candidates.Input{Rows: rows, FirstWeek: 1, LastWeek: 2, Threshold: 0.6})
		So(err, ShouldBeNil)

		for _, cutoff := range []int{6, 0} {
			cfg := testConfig()
			cfg.ExhaustiveCutoffWeeks = cutoff
			out, res, err := run(t, cfg, tbl)

			Convey("Then only the surviving branch is retained with cutoff "+string(rune('0'+cutoff)), func() {
				So(err, ShouldBeNil)
				So(res.Count(context.Background()), ShouldEqual, 1)
				So(out.Finalists[0].Key, ShouldEqual, "1:B|2:A")
				So(out.Stats.Dead, ShouldBeGreaterThan, int64(0))
			})
		}
	})

	Convey("Given a week where every competitor is used", t, func() {
		rows := []model.ProbabilityRow{
			{Week: 1, Home: "A", Away: "X", HomeWinProb: 0.9, AwayWinProb: 0.1},
			{Week: 2, Home: "A", Away: "Y", HomeWinProb: 0.8, AwayWinProb: 0.2},
			{Week: 3, Home: "C", Away: "Z", HomeWinProb: 0.8, AwayWinProb: 0.2},
		}
		tbl, err := candidates.Build(candidates.Input{Rows: rows, FirstWeek: 1, LastWeek: 3, Threshold: 0.6})
		So(err, ShouldBeNil)

		for _, cutoff := range []int{6, 0} {
			cfg := testConfig()
			cfg.ExhaustiveCutoffWeeks = cutoff
			out, res, err := run(t, cfg, tbl)

			Convey("Then no feasible path is reported with cutoff "+string(rune('0'+cutoff)), func() {
				So(errors.Is(err, search.ErrNoFeasiblePath), ShouldBeTrue)
				So(res.Count(context.Background()), ShouldEqual, 0)
				So(out.Finalists, ShouldBeEmpty)
			})
		}
	})

	Convey("Given a week without any admissible game", t, func() {
		rows := []model.ProbabilityRow{
			{Week: 1, Home: "A", Away: "X", HomeWinProb: 0.9, AwayWinProb: 0.1},
			{Week: 2, Home: "B", Away: "Y", HomeWinProb: 0.5, AwayWinProb: 0.5},
		}
		tbl, err := candidates.Build(candidates.Input{Rows: rows, FirstWeek: 1, LastWeek: 2, Threshold: 0.6})
		So(err, ShouldBeNil)

		_, _, err = run(t, testConfig(), tbl)
		So(errors.Is(err, search.ErrNoFeasiblePath), ShouldBeTrue)
	})
}

func TestPruningSoundness(t *testing.T) {
	Convey("Given a seven week league", t, func() {
		tbl := seasonTable(t, 11, 10, 7, 0.55, nil)

		exh := testConfig()
		exh.ExhaustiveCutoffWeeks = 7
		exact, _, err := run(t, exh, tbl)
		So(err, ShouldBeNil)

		for _, bound := range []search.BoundKind{search.BoundDiscount, search.BoundData} {
			Convey("When sampling with the "+string(bound)+" bound", func() {
				on := testConfig()
				on.ExhaustiveCutoffWeeks = 0
				on.TrialCount = 1_000_000
				on.BatchSize = 10_000
				on.PruningBound = bound
				off := on
				off.PruningEnabled = false

				pruned, _, err := run(t, on, tbl)
				So(err, ShouldBeNil)
				unpruned, _, err := run(t, off, tbl)
				So(err, ShouldBeNil)

				Convey("Then pruning does not change the best score", func() {
					So(pruned.Stats.BestScore, ShouldAlmostEqual, unpruned.Stats.BestScore, 1e-12)
					So(pruned.Stats.Pruned, ShouldBeGreaterThan, int64(0))
					So(unpruned.Stats.Pruned, ShouldEqual, int64(0))
				})

				Convey("Then sampling never beats exhaustive enumeration", func() {
					So(exact.Stats.BestScore, ShouldBeGreaterThanOrEqualTo, pruned.Stats.BestScore-1e-12)
					So(exact.Stats.BestScore, ShouldAlmostEqual, pruned.Stats.BestScore, 1e-12)
				})
			})
		}
	})
}

func TestAgreementAndLegality(t *testing.T) {
	Convey("Given several random leagues", t, func() {
		for _, seed := range []uint64{1, 2, 3} {
			tbl := seasonTable(t, seed, 12, 6, 0.55, nil)

			exact, _, errE := run(t, testConfig(), tbl)
			cfg := testConfig()
			cfg.ExhaustiveCutoffWeeks = 0
			cfg.Workers = 4
			sampled, _, errR := run(t, cfg, tbl)

			if errors.Is(errE, search.ErrNoFeasiblePath) {
				So(errors.Is(errR, search.ErrNoFeasiblePath), ShouldBeTrue)
				continue
			}
			So(errE, ShouldBeNil)
			So(errR, ShouldBeNil)
			So(exact.Stats.BestScore, ShouldBeGreaterThanOrEqualTo, sampled.Stats.BestScore-1e-12)
			assertLegal(exact.Finalists, tbl.Weeks)
			assertLegal(sampled.Finalists, tbl.Weeks)
			So(len(exact.Finalists), ShouldBeLessThanOrEqualTo, testConfig().FinalistCount)
		}
	})
}

func TestLockedPrecedence(t *testing.T) {
	Convey("Given a locked pick inside the searched range", t, func() {
		rows := []model.ProbabilityRow{
			{Week: 1, Home: "A", Away: "X1", HomeWinProb: 0.9, AwayWinProb: 0.1},
			{Week: 1, Home: "B", Away: "X2", HomeWinProb: 0.6, AwayWinProb: 0.4},
			{Week: 2, Home: "C", Away: "X3", HomeWinProb: 0.8, AwayWinProb: 0.2},
			{Week: 2, Home: "D", Away: "X4", HomeWinProb: 0.55, AwayWinProb: 0.45},
			{Week: 3, Home: "E", Away: "X5", HomeWinProb: 0.7, AwayWinProb: 0.3},
			{Week: 3, Home: "F", Away: "X6", HomeWinProb: 0.6, AwayWinProb: 0.4},
		}
		locked := map[int]model.Pick{2: {Competitor: "X4", Opponent: "D", WinProb: 0.45}}
		tbl, err := candidates.Build(candidates.Input{Rows: rows, FirstWeek: 1, LastWeek: 3, Threshold: 0.5, Locked: locked})
		So(err, ShouldBeNil)

		for _, cutoff := range []int{6, 0} {
			cfg := testConfig()
			cfg.ExhaustiveCutoffWeeks = cutoff
			out, _, err := run(t, cfg, tbl)
			So(err, ShouldBeNil)

			Convey("Then every finalist carries the lock exactly with cutoff "+string(rune('0'+cutoff)), func() {
				for _, p := range out.Finalists {
					So(p.Picks[1], ShouldResemble, model.Pick{Week: 2, Competitor: "X4", Opponent: "D", WinProb: 0.45})
				}
				So(out.Finalists[0].Key, ShouldEqual, "1:A|2:X4|3:E")
			})
		}
	})

	Convey("Given a locked competitor from a past week", t, func() {
		locked := map[int]model.Pick{}
		tbl := seasonTable(t, 5, 8, 7, 0.55, nil)
		first := tbl.Weeks[0].Pick(0)
		locked[1] = first
		tbl = seasonTable(t, 5, 8, 7, 0.55, locked)

		Convey("Then later weeks never pick it", func() {
			for _, w := range tbl.Weeks[1:] {
				So(w.Competitors, ShouldNotContain, first.Competitor)
			}
		})
	})
}

func TestBudgetAndCancellation(t *testing.T) {
	Convey("Given a long randomized run", t, func() {
		tbl := seasonTable(t, 9, 32, 17, 0.55, nil)
		cfg := testConfig()
		cfg.ExhaustiveCutoffWeeks = 0
		cfg.TrialCount = 50_000_000

		Convey("When the time budget expires", func() {
			cfg.TimeBudget = 100 * time.Millisecond
			eng, err := search.New(cfg)
			So(err, ShouldBeNil)
			st, err := eng.Randomized(context.Background(), tbl, repository.NewReservoir())

			Convey("Then partial results are returned", func() {
				So(err, ShouldBeNil)
				So(st.Truncated, ShouldBeTrue)
				So(st.Trials, ShouldBeLessThan, int64(cfg.TrialCount))
			})
		})

		Convey("When the caller cancels", func() {
			eng, err := search.New(cfg)
			So(err, ShouldBeNil)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err = eng.Run(ctx, tbl, repository.NewReservoir())

			Convey("Then the context error is returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

// stalledExecutor never runs a batch and returns once ctx is done.
type stalledExecutor struct{}

func (stalledExecutor) Execute(ctx context.Context, _ []model.TrialBatch, _ search.BatchFunc) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestUnsearchedHorizon(t *testing.T) {
	Convey("Given a horizon longer than the exhaustive cutoff", t, func() {
		tbl := threeWeekTable(t)
		cfg := testConfig()
		cfg.ExhaustiveCutoffWeeks = 0

		Convey("When no trials are configured", func() {
			cfg.TrialCount = 0
			eng, err := search.New(cfg)
			So(err, ShouldBeNil)
			_, err = eng.Run(context.Background(), tbl, repository.NewReservoir())

			Convey("Then the config is rejected instead of reporting no path", func() {
				So(errors.Is(err, search.ErrInvalidConfig), ShouldBeTrue)
				So(errors.Is(err, search.ErrNoFeasiblePath), ShouldBeFalse)
			})
		})

		Convey("When the budget expires before any trial finishes", func() {
			cfg.TimeBudget = 10 * time.Millisecond
			eng, err := search.New(cfg, search.WithExecutor(stalledExecutor{}))
			So(err, ShouldBeNil)
			out, err := eng.Run(context.Background(), tbl, repository.NewReservoir())

			Convey("Then the search is reported incomplete", func() {
				So(errors.Is(err, search.ErrSearchIncomplete), ShouldBeTrue)
				So(errors.Is(err, search.ErrNoFeasiblePath), ShouldBeFalse)
				So(out.Stats.Truncated, ShouldBeTrue)
				So(out.Stats.Trials, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a short horizon searched exhaustively", t, func() {
		cfg := testConfig()
		cfg.TrialCount = 0
		out, _, err := run(t, cfg, threeWeekTable(t))

		Convey("Then zero trials are irrelevant", func() {
			So(err, ShouldBeNil)
			So(out.Stats.Engine, ShouldEqual, search.EngineExhaustive)
		})
	})
}

func TestConfigValidation(t *testing.T) {
	Convey("Given the default config", t, func() {
		So(search.DefaultConfig().Validate(), ShouldBeNil)

		bad := []func(c *search.Config){
			func(c *search.Config) { c.AdmissionThreshold = 1 },
			func(c *search.Config) { c.TrialCount = -1 },
			func(c *search.Config) { c.ExhaustiveCutoffWeeks = -1 },
			func(c *search.Config) { c.ReservoirLowWatermark = 6000 },
			func(c *search.Config) { c.FinalistCount = 0 },
			func(c *search.Config) { c.PruningDiscountFactor = 0 },
			func(c *search.Config) { c.PruningDiscountFactor = 1.1 },
			func(c *search.Config) { c.PruningBound = "magic" },
			func(c *search.Config) { c.BatchSize = 0 },
			func(c *search.Config) { c.TimeBudget = -time.Second },
		}
		for _, mutate := range bad {
			cfg := search.DefaultConfig()
			mutate(&cfg)
			So(errors.Is(cfg.Validate(), search.ErrInvalidConfig), ShouldBeTrue)
			_, err := search.New(cfg)
			So(err, ShouldNotBeNil)
		}
	})
}

func TestBest(t *testing.T) {
	Convey("Given a shared best accumulator", t, func() {
		b := search.NewBest()
		So(b.Found(), ShouldBeFalse)
		So(b.Score(), ShouldEqual, 0)

		var wg sync.WaitGroup
		for i := 1; i <= 100; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				b.Observe(math.Log(float64(i) / 100))
			}(i)
		}
		wg.Wait()

		So(b.Found(), ShouldBeTrue)
		So(b.Score(), ShouldAlmostEqual, 1.0, 1e-12)
		So(b.Observe(math.Log(0.5)), ShouldBeFalse)
	})
}
