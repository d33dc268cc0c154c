package candidates

import "errors"

// ErrInvalidInput marks a malformed probability table or pick configuration.
var ErrInvalidInput = errors.New("invalid input")
