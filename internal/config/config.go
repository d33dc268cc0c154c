// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New returns the defaults; Load layers a YAML file and env vars on top.
//   - Nested sections map to nested koanf keys, e.g. search.trial_count.
//   - Validation errors wrap ErrInvalidConfig; bad picks also wrap ErrInvalidPick.
package config

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/okian/survivor/internal/domain/model"
	"github.com/okian/survivor/internal/domain/schedule"
	"github.com/okian/survivor/internal/domain/search"
	"github.com/okian/survivor/internal/domain/winprob"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of trial workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the trial batch queue.
	QueueSize int `koanf:"queue_size"`

	// InflightSize caps concurrently running recommendations.
	InflightSize int `koanf:"inflight_size"`

	Search  search.Config  `koanf:"search"`
	Season  Season         `koanf:"season"`
	Picks   Picks          `koanf:"picks"`
	Model   winprob.Params `koanf:"model"`
	Storage Storage        `koanf:"storage"`
	HTTP    HTTP           `koanf:"http"`
	Scrape  Scrape         `koanf:"scrape"`
}

// Season describes the contest entry and the league shape.
type Season struct {
	// StartWeek is the first week of the entry; 1 for a first-chance entry.
	StartWeek    int `koanf:"start_week"`
	LastWeek     int `koanf:"last_week"`
	GamesPerTeam int `koanf:"games_per_team"`
	// GamesPerWeek is not checked when zero.
	GamesPerWeek int `koanf:"games_per_week"`
}

// SecondChance reports whether the entry started after week one.
func (s Season) SecondChance() bool { return s.StartWeek > 1 }

// Rules returns the schedule checks implied by the season.
func (s Season) Rules() schedule.Rules {
	return schedule.Rules{GamesPerTeam: s.GamesPerTeam, GamesPerWeek: s.GamesPerWeek}
}

// Pick is a configured locked or forced pick.
type Pick struct {
	Competitor string  `koanf:"competitor"`
	Opponent   string  `koanf:"opponent"`
	WinProb    float64 `koanf:"win_prob"`
}

// Picks holds the locked history and the forced overrides, keyed by week.
type Picks struct {
	Locked map[int]Pick `koanf:"locked"`
	Forced map[int]Pick `koanf:"forced"`
}

// LockedPicks converts the locked map to domain picks.
func (p Picks) LockedPicks() map[int]model.Pick { return toModel(p.Locked) }

// ForcedPicks converts the forced map to domain picks.
func (p Picks) ForcedPicks() map[int]model.Pick { return toModel(p.Forced) }

// FirstOpenWeek is the week after the last locked pick, or start when none.
func (p Picks) FirstOpenWeek(start int) int {
	next := start
	for w := range p.Locked {
		next = max(next, w+1)
	}
	return next
}

func toModel(in map[int]Pick) map[int]model.Pick {
	if len(in) == 0 {
		return nil
	}
	out := make(map[int]model.Pick, len(in))
	for w, p := range in {
		out[w] = model.Pick{Week: w, Competitor: p.Competitor, Opponent: p.Opponent, WinProb: p.WinProb}
	}
	return out
}

// Storage locates input files and outputs.
type Storage struct {
	ProbabilitiesPath string `koanf:"probabilities_path"`
	SchedulePath      string `koanf:"schedule_path"`
	TeamsPath         string `koanf:"teams_path"`
	ResultsPath       string `koanf:"results_path"`
	// OutputDir receives per-run picks; empty disables writing.
	OutputDir string `koanf:"output_dir"`
	// HistoryDSN is a sqlite file for run history; empty disables it.
	HistoryDSN string `koanf:"history_dsn"`
}

// HTTP configures the API surface.
type HTTP struct {
	// RecommendRate is a limiter rate such as "10-M".
	RecommendRate   string        `koanf:"recommend_rate"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Scrape configures the standings and results scrapers.
type Scrape struct {
	StandingsURL     string        `koanf:"standings_url"`
	ResultsURLPrefix string        `koanf:"results_url_prefix"`
	UserAgent        string        `koanf:"user_agent"`
	Delay            time.Duration `koanf:"delay"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "text",
		Addr:         ":9080",
		WorkerCount:  runtime.NumCPU(),
		QueueSize:    1024,
		InflightSize: 8,
		Search:       search.DefaultConfig(),
		Season: Season{
			StartWeek:    1,
			LastWeek:     18,
			GamesPerTeam: 17,
		},
		Model: winprob.DefaultParams(),
		Storage: Storage{
			ProbabilitiesPath: "data/schedule_with_probabilities.csv",
			SchedulePath:      "data/nfl_schedule.csv",
			TeamsPath:         "data/nfl_projected_wins.csv",
			ResultsPath:       "data/all_game_results.csv",
			OutputDir:         "data",
		},
		HTTP: HTTP{
			RecommendRate:   "10-M",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Scrape: Scrape{
			StandingsURL:     fmt.Sprintf("https://www.pro-football-reference.com/years/%d/", season(time.Now())),
			ResultsURLPrefix: fmt.Sprintf("https://www.pro-football-reference.com/years/%d/week_", season(time.Now())),
			Delay:            3 * time.Second,
		},
	}
}

// season is the year a season started; January to May belong to the previous one.
func season(now time.Time) int {
	if now.Month() <= time.May {
		return now.Year() - 1
	}
	return now.Year()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("%w: search: %v", ErrInvalidConfig, err)
	}
	if c.Season.StartWeek < 1 || c.Season.LastWeek < c.Season.StartWeek {
		return fmt.Errorf("%w: season weeks %d..%d", ErrInvalidConfig, c.Season.StartWeek, c.Season.LastWeek)
	}
	if c.WorkerCount < 0 || c.QueueSize < 0 || c.InflightSize < 0 {
		return fmt.Errorf("%w: worker_count, queue_size and inflight_size must not be negative", ErrInvalidConfig)
	}
	for _, set := range []struct {
		name  string
		picks map[int]Pick
	}{{"locked", c.Picks.Locked}, {"forced", c.Picks.Forced}} {
		weeks := make([]int, 0, len(set.picks))
		for w := range set.picks {
			weeks = append(weeks, w)
		}
		sort.Ints(weeks)
		for _, w := range weeks {
			p := set.picks[w]
			if p.Competitor == "" {
				return fmt.Errorf("%w: %s week %d has no competitor", ErrInvalidPick, set.name, w)
			}
			if math.IsNaN(p.WinProb) || p.WinProb < 0 || p.WinProb > 1 {
				return fmt.Errorf("%w: %s week %d has probability %v outside [0,1]", ErrInvalidPick, set.name, w, p.WinProb)
			}
		}
	}
	return nil
}
