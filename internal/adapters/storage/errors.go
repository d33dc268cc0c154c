package storage

import "errors"

// ErrMalformed is returned for CSV files with missing columns or bad values.
var ErrMalformed = errors.New("malformed csv")
