package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/survivor/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.Season.StartWeek, convey.ShouldEqual, 1)
			convey.So(cfg.Season.LastWeek, convey.ShouldEqual, 18)
			convey.So(cfg.Season.SecondChance(), convey.ShouldBeFalse)
			convey.So(cfg.HTTP.RecommendRate, convey.ShouldEqual, "10-M")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the season ends before it starts", func() {
			cfg.Season.StartWeek = 10
			cfg.Season.LastWeek = 4

			convey.Convey("Then validation fails", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a locked pick has no competitor", func() {
			cfg.Picks.Locked = map[int]config.Pick{3: {WinProb: 0.7}}

			convey.Convey("Then validation names the week", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(errors.Is(err, config.ErrInvalidPick), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "locked week 3")
			})
		})

		convey.Convey("When a forced pick has a probability above one", func() {
			cfg.Picks.Forced = map[int]config.Pick{5: {Competitor: "KC", WinProb: 1.2}}

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidPick), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the season starts at week zero", func() {
			convey.Convey("Then a season error is not a pick error", func() {
				cfg.Season.StartWeek = 0
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(errors.Is(err, config.ErrInvalidPick), convey.ShouldBeFalse)
			})
		})
	})
}

func TestPicks(t *testing.T) {
	convey.Convey("Given locked picks for weeks 1 and 2", t, func() {
		p := config.Picks{Locked: map[int]config.Pick{
			1: {Competitor: "DEN", Opponent: "TEN", WinProb: 0.69},
			2: {Competitor: "DAL", Opponent: "NYG", WinProb: 0.71},
		}}

		convey.Convey("Then the first open week follows the last lock", func() {
			convey.So(p.FirstOpenWeek(1), convey.ShouldEqual, 3)
			convey.So(config.Picks{}.FirstOpenWeek(1), convey.ShouldEqual, 1)
		})

		convey.Convey("Then domain picks carry their week", func() {
			locked := p.LockedPicks()
			convey.So(locked, convey.ShouldHaveLength, 2)
			convey.So(locked[2].Week, convey.ShouldEqual, 2)
			convey.So(locked[2].Competitor, convey.ShouldEqual, "DAL")
			convey.So(p.ForcedPicks(), convey.ShouldBeNil)
		})
	})
}
