package scrape

import "errors"

var (
	// ErrNoRows is returned when a page parsed cleanly but held no data.
	ErrNoRows = errors.New("no rows parsed")
	// ErrFetch wraps transport and HTTP status failures.
	ErrFetch = errors.New("fetch failed")
)
