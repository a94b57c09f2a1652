package scheduler

import "errors"

var (
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
	ErrJobQueueFull        = errors.New("job queue is full")
	// ErrJobAlreadyQueued is returned by SubmitIfIdle while a job of the
	// same kind is pending or running.
	ErrJobAlreadyQueued = errors.New("job of this kind is already queued")
	ErrUnknownJobKind   = errors.New("unknown job kind")
	ErrInvalidConfig    = errors.New("invalid scheduler configuration")
)
