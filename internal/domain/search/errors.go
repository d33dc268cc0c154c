package search

import "errors"

// Sentinel kinds for search errors.
var (
	// ErrNoFeasiblePath means no path survived every searched week.
	ErrNoFeasiblePath = errors.New("no feasible survivor path")
	// ErrSearchIncomplete means the time budget ran out before any path
	// was found, so feasibility is unknown.
	ErrSearchIncomplete = errors.New("search stopped before any path was found")
	ErrInvalidConfig    = errors.New("invalid search config")
)
