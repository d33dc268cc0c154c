package config

import (
	"errors"
	"fmt"
)

var (
	// ErrLoadConfig wraps failures reading the YAML file or the SURVIVOR_ environment.
	ErrLoadConfig = errors.New("load survivor config")
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid survivor config")
	// ErrInvalidPick marks a locked or forced pick that cannot be used.
	ErrInvalidPick = fmt.Errorf("%w: pick", ErrInvalidConfig)
)
