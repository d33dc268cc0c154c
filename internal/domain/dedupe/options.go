package dedupe

// Option applies a configuration option to the in-flight guard.
type Option func(*inMemoryGuard)

// WithMaxSize sets how many keys may be in flight at once.
// A value of zero or less removes the limit.
func WithMaxSize(maxSize int) Option {
	return func(g *inMemoryGuard) {
		g.maxSize = maxSize
	}
}
