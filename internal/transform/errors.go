package transform

import "errors"

var (
	ErrEmptyPlatformList = errors.New("platform list cannot be empty")
	ErrInvalidPlatform   = errors.New("unknown platform")
	ErrBackpressure      = errors.New("job queue is full")
	ErrJobNotFound       = errors.New("job not found")
	ErrVersionConflict   = errors.New("job version conflict")
	ErrTerminalState     = errors.New("job is in a terminal state")
)
