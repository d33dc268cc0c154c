package search

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/okian/survivor/internal/domain/candidates"
)

// bound returns, for week index i, the log of the most any weeks after i
// can still contribute to a path's score.
type bound func(i int) float64

func newBound(cfg Config, tbl *candidates.Table) bound {
	n := len(tbl.Weeks)
	if !cfg.PruningEnabled {
		return nil
	}
	if cfg.PruningBound == BoundData {
		// suffix[i] = sum over weeks j >= i of log(max candidate probability)
		suffix := make([]float64, n+1)
		for i := n - 1; i >= 0; i-- {
			best := 0.0
			if probs := tbl.Weeks[i].Probs; len(probs) > 0 {
				best = floats.Max(probs)
			}
			suffix[i] = suffix[i+1] + math.Log(best)
		}
		return func(i int) float64 { return suffix[i+1] }
	}
	logDiscount := math.Log(cfg.PruningDiscountFactor)
	return func(i int) float64 { return float64(n-1-i) * logDiscount }
}
