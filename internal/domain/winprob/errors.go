package winprob

import "errors"

var (
	// ErrUnknownTeam is returned when a schedule names a team without strength data.
	ErrUnknownTeam = errors.New("unknown team")
	// ErrInvalidParams is returned for unusable model parameters.
	ErrInvalidParams = errors.New("invalid model parameters")
)
