package search

import (
	"math"
	"sync/atomic"
)

// Best is a lock-free running maximum of log scores shared by every
// branch and trial of one search.
type Best struct {
	bits atomic.Uint64
}

// NewBest returns an accumulator holding no score yet.
func NewBest() *Best {
	b := &Best{}
	b.bits.Store(math.Float64bits(math.Inf(-1)))
	return b
}

// Log returns the best log score, -Inf when nothing was observed.
func (b *Best) Log() float64 {
	return math.Float64frombits(b.bits.Load())
}

// Score returns the best linear score, 0 when nothing was observed.
func (b *Best) Score() float64 {
	return math.Exp(b.Log())
}

// Found reports whether any score was observed.
func (b *Best) Found() bool {
	return !math.IsInf(b.Log(), -1)
}

// Observe raises the maximum to logScore and reports whether it improved.
func (b *Best) Observe(logScore float64) bool {
	for {
		old := b.bits.Load()
		if logScore <= math.Float64frombits(old) {
			return false
		}
		if b.bits.CompareAndSwap(old, math.Float64bits(logScore)) {
			return true
		}
	}
}
