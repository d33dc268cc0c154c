package repository

import "errors"

// Sentinel kinds for reservoir errors.
var (
	ErrInvalidLimit = errors.New("invalid reservoir limit")
)
