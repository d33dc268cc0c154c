package service

import (
	"github.com/okian/survivor/internal/adapters/history"
	"github.com/okian/survivor/internal/config"
	"github.com/okian/survivor/pkg/logger"
)

// FromConfig builds a Service from cfg. The returned close func releases
// the history store and must be called after Stop.
func FromConfig(cfg *config.Config, l logger.Logger) (*Service, func() error, error) {
	opts := []Option{
		WithLogger(l),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithInflightSize(cfg.InflightSize),
		WithSearchConfig(cfg.Search),
		WithSeason(cfg.Season.StartWeek, cfg.Season.LastWeek),
		WithPicks(cfg.Picks.LockedPicks(), cfg.Picks.ForcedPicks()),
		WithSource(FileSource(cfg.Storage.ProbabilitiesPath, cfg.Storage.SchedulePath, cfg.Storage.TeamsPath, cfg.Model)),
		WithOutputDir(cfg.Storage.OutputDir),
	}

	closer := func() error { return nil }
	if cfg.Storage.HistoryDSN != "" {
		store, err := history.Open(cfg.Storage.HistoryDSN)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, WithHistory(store))
		closer = store.Close
	}
	return New(opts...), closer, nil
}
