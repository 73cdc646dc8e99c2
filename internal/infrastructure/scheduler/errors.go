package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrAlreadyRunning is returned by RunNow while a run is in progress
	ErrAlreadyRunning = errors.New("job is already running")
)
