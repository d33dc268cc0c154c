package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/survivor/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Search.TrialCount, convey.ShouldEqual, config.New().Search.TrialCount)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SURVIVOR_ADDR", ":8080")
			_ = os.Setenv("SURVIVOR_WORKER_COUNT", "16")
			_ = os.Setenv("SURVIVOR_SEARCH__TRIAL_COUNT", "5000")
			_ = os.Setenv("SURVIVOR_SEARCH__TIME_BUDGET", "90s")
			_ = os.Setenv("SURVIVOR_SEASON__START_WEEK", "5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then nested keys should be overridden", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.Search.TrialCount, convey.ShouldEqual, 5000)
				convey.So(cfg.Search.TimeBudget, convey.ShouldEqual, 90*time.Second)
				convey.So(cfg.Season.SecondChance(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config from a YAML file", func() {
			yamlContent := `
addr: ":9090"
# picks already made this season
picks:
  locked:
    1: {competitor: DEN, opponent: TEN, win_prob: 0.69}
    2: {competitor: DAL, opponent: NYG, win_prob: 0.71}
  forced:
    6: {competitor: GB, opponent: CIN, win_prob: 0.74}
model:
  scale: 4
storage:
  history_dsn: runs.db
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SURVIVOR_CONFIG", tmpFile)
			_ = os.Setenv("SURVIVOR_ADDR", ":7070")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.Picks.Locked, convey.ShouldHaveLength, 2)
				convey.So(cfg.Picks.Locked[2].Competitor, convey.ShouldEqual, "DAL")
				convey.So(cfg.Picks.Forced[6].WinProb, convey.ShouldEqual, 0.74)
				convey.So(cfg.Picks.FirstOpenWeek(cfg.Season.StartWeek), convey.ShouldEqual, 3)
				convey.So(cfg.Model.Scale, convey.ShouldEqual, 4)
				convey.So(cfg.Model.SeasonGames, convey.ShouldEqual, config.New().Model.SeasonGames)
				convey.So(cfg.Storage.HistoryDSN, convey.ShouldEqual, "runs.db")
			})
		})
	})
}

func TestConfigLoaderEdgeCases(t *testing.T) {
	convey.Convey("Given config loader edge cases", t, func() {
		ctx := context.Background()

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("SURVIVOR_CONFIG", "/nonexistent/survivor.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with YAML file containing empty values", func() {
			tmpFile := createTempConfigFile("addr: \"\"\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SURVIVOR_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return validation error for empty addr", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the search section is invalid", func() {
			_ = os.Setenv("SURVIVOR_SEARCH__TRIAL_COUNT", "-1")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"SURVIVOR_CONFIG",
		"SURVIVOR_ADDR",
		"SURVIVOR_WORKER_COUNT",
		"SURVIVOR_SEARCH__TRIAL_COUNT",
		"SURVIVOR_SEARCH__TIME_BUDGET",
		"SURVIVOR_SEASON__START_WEEK",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "survivor-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
