package transform

// Scheduler hands accepted jobs to the worker pool. Submit fails fast with
// ErrBackpressure instead of growing the queue unbounded.
type Scheduler interface {
	Submit(jobID string) error
}
