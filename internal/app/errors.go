package service

import "errors"

// Sentinel errors returned by the service.
var (
	// ErrRunInProgress means an identical recommendation is already running.
	ErrRunInProgress = errors.New("identical recommendation already running")
	// ErrBusy means too many recommendations are running.
	ErrBusy = errors.New("too many recommendations in flight")
	// ErrNotStarted is returned before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrHistoryDisabled is returned by history lookups without a store.
	ErrHistoryDisabled = errors.New("run history disabled")
)
