// Package repository holds the bounded, ranked path reservoir.
package repository

// Option applies a configuration option to the Reservoir.
type Option func(*Reservoir)

// WithWatermarks sets the size that triggers a trim and the size kept by it.
// Invalid pairs are ignored.
func WithWatermarks(high, low int) Option {
	return func(r *Reservoir) {
		if low >= 1 && high >= low {
			r.high = high
			r.low = low
		}
	}
}

// WithSeed makes treap priorities reproducible.
func WithSeed(seed uint64) Option {
	return func(r *Reservoir) {
		r.seed = seed
	}
}
