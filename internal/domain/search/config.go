package search

import (
	"fmt"
	"math"
	"time"
)

// BoundKind selects the optimistic bound used to prune randomized trials.
type BoundKind string

const (
	// BoundDiscount assumes every remaining week is worth at most the discount factor.
	BoundDiscount BoundKind = "discount"
	// BoundData uses the best candidate probability of every remaining week.
	BoundData BoundKind = "data"
)

// Engine names reported in Stats.
const (
	EngineExhaustive = "exhaustive"
	EngineRandomized = "randomized"
)

// Config carries every tunable of a search run.
type Config struct {
	AdmissionThreshold     float64       `json:"admission_threshold" koanf:"admission_threshold"`
	TrialCount             int           `json:"trial_count" koanf:"trial_count"`
	ExhaustiveCutoffWeeks  int           `json:"exhaustive_cutoff_weeks" koanf:"exhaustive_cutoff_weeks"`
	ReservoirHighWatermark int           `json:"reservoir_high_watermark" koanf:"reservoir_high_watermark"`
	ReservoirLowWatermark  int           `json:"reservoir_low_watermark" koanf:"reservoir_low_watermark"`
	PruningDiscountFactor  float64       `json:"pruning_discount_factor" koanf:"pruning_discount_factor"`
	FinalistCount          int           `json:"finalist_count" koanf:"finalist_count"`
	PruningEnabled         bool          `json:"pruning_enabled" koanf:"pruning_enabled"`
	PruningBound           BoundKind     `json:"pruning_bound" koanf:"pruning_bound"`
	BatchSize              int           `json:"batch_size" koanf:"batch_size"`
	Workers                int           `json:"workers" koanf:"workers"`
	Seed                   uint64        `json:"seed" koanf:"seed"`
	TimeBudget             time.Duration `json:"time_budget" koanf:"time_budget"`
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		AdmissionThreshold:     0.6,
		TrialCount:             1_000_000,
		ExhaustiveCutoffWeeks:  6,
		ReservoirHighWatermark: 5000,
		ReservoirLowWatermark:  100,
		PruningDiscountFactor:  0.9,
		FinalistCount:          100,
		PruningEnabled:         true,
		PruningBound:           BoundDiscount,
		BatchSize:              10_000,
	}
}

// Validate checks field ranges.
func (c Config) Validate() error {
	switch {
	case math.IsNaN(c.AdmissionThreshold) || c.AdmissionThreshold < 0 || c.AdmissionThreshold >= 1:
		return fmt.Errorf("%w: admission_threshold %v must be in [0,1)", ErrInvalidConfig, c.AdmissionThreshold)
	case c.TrialCount < 0:
		return fmt.Errorf("%w: trial_count %d is negative", ErrInvalidConfig, c.TrialCount)
	case c.ExhaustiveCutoffWeeks < 0:
		return fmt.Errorf("%w: exhaustive_cutoff_weeks %d is negative", ErrInvalidConfig, c.ExhaustiveCutoffWeeks)
	case c.ReservoirLowWatermark < 1 || c.ReservoirHighWatermark < c.ReservoirLowWatermark:
		return fmt.Errorf("%w: reservoir watermarks %d/%d need 1 <= low <= high",
			ErrInvalidConfig, c.ReservoirLowWatermark, c.ReservoirHighWatermark)
	case c.FinalistCount < 1:
		return fmt.Errorf("%w: finalist_count %d must be positive", ErrInvalidConfig, c.FinalistCount)
	case !(c.PruningDiscountFactor > 0 && c.PruningDiscountFactor <= 1):
		return fmt.Errorf("%w: pruning_discount_factor %v must be in (0,1]", ErrInvalidConfig, c.PruningDiscountFactor)
	case c.PruningBound != BoundDiscount && c.PruningBound != BoundData:
		return fmt.Errorf("%w: unknown pruning_bound %q", ErrInvalidConfig, c.PruningBound)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch_size %d must be positive", ErrInvalidConfig, c.BatchSize)
	case c.TimeBudget < 0:
		return fmt.Errorf("%w: time_budget %s is negative", ErrInvalidConfig, c.TimeBudget)
	}
	return nil
}
