package worker

import (
	"sync"

	"github.com/viralsplit/viralsplit-backend/internal/transform"
	"github.com/viralsplit/viralsplit-backend/pkg/logger"
)

// Queue feeds accepted job IDs to the worker pool. Submit must fail fast
// with ErrBackpressure once the configured depth is reached.
type Queue interface {
	Submit(jobID string) error
	Claim() <-chan string
	Len() int
	Close()
}

// JobQueue is a bounded in-process FIFO of accepted job IDs. Submit never blocks:
// once the configured depth is reached it fails fast with ErrBackpressure.
type JobQueue struct {
	jobs      chan string
	logger    logger.Logger
	closeOnce sync.Once
}

func NewJobQueue(depth int, log logger.Logger) *JobQueue {
	return &JobQueue{
		jobs:   make(chan string, depth),
		logger: log,
	}
}

func (q *JobQueue) Submit(jobID string) error {
	select {
	case q.jobs <- jobID:
		return nil
	default:
		q.logger.Warnf("job queue full, rejecting job %s", jobID)
		return transform.ErrBackpressure
	}
}

func (q *JobQueue) Claim() <-chan string {
	return q.jobs
}

func (q *JobQueue) Len() int {
	return len(q.jobs)
}

func (q *JobQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.jobs)
	})
}
