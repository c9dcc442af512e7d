package scheduler

import "errors"

var (
	// ErrTriggerNotRunning is returned when stopping a trigger that never started
	ErrTriggerNotRunning = errors.New("reconcile trigger is not running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid trigger configuration")
)
