package history

import "errors"

// ErrNotFound is returned when no run matches.
var ErrNotFound = errors.New("run not found")
