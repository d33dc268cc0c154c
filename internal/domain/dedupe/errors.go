package dedupe

import "errors"

var (
	// ErrInFlight means an identical key is already being processed.
	ErrInFlight = errors.New("identical request already in flight")
	// ErrCapacity means the guard tracks its maximum number of keys.
	ErrCapacity = errors.New("too many requests in flight")
)
