package queue

import "errors"

var (
	// ErrNotFound is returned when an operation targets an unknown job id.
	ErrNotFound = errors.New("queue: job not found")
	// ErrInvalidJob is returned when intake or transition input fails validation.
	ErrInvalidJob = errors.New("queue: invalid job")
)
