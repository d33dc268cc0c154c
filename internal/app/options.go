package service

import (
	"github.com/okian/survivor/internal/adapters/history"
	"github.com/okian/survivor/internal/domain/model"
	"github.com/okian/survivor/internal/domain/search"
	"github.com/okian/survivor/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of trial workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the trial batch queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithInflightSize caps concurrently running recommendations.
func WithInflightSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.inflightSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSearchConfig sets the default search tuning.
func WithSearchConfig(cfg search.Config) Option {
	return func(s *Service) {
		s.search = cfg
	}
}

// WithSeason sets the entry's first week and the season's last week.
func WithSeason(startWeek, lastWeek int) Option {
	return func(s *Service) {
		if startWeek > 0 && lastWeek >= startWeek {
			s.startWeek = startWeek
			s.lastWeek = lastWeek
		}
	}
}

// WithPicks sets the default locked and forced picks.
func WithPicks(locked, forced map[int]model.Pick) Option {
	return func(s *Service) {
		s.locked = locked
		s.forced = forced
	}
}

// WithSource sets where probabilities come from when a request has none.
func WithSource(src Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithOutputDir enables writing picks.csv and weekly_options.txt per run.
func WithOutputDir(dir string) Option {
	return func(s *Service) {
		s.outputDir = dir
	}
}

// WithHistory enables run history.
func WithHistory(store *history.Store) Option {
	return func(s *Service) {
		s.history = store
	}
}
