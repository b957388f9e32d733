package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrInvalidJob is returned when a job has no name, function or interval
	ErrInvalidJob = errors.New("invalid job")

	// ErrDuplicateJob is returned when a job name is registered twice
	ErrDuplicateJob = errors.New("job already registered")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrJobAlreadyRunning is returned when a run would overlap the previous one
	ErrJobAlreadyRunning = errors.New("job already running")

	// ErrSchedulerRunning is returned when registering on a started scheduler
	ErrSchedulerRunning = errors.New("scheduler is already running")
)
