package transform

import (
	"context"
	"time"

	"github.com/viralsplit/viralsplit-backend/internal/models"
)

// Mutator transforms a job snapshot in place. It runs under the store's
// single-writer guarantee for that job.
type Mutator func(job *models.TransformJob) error

// Store is the authoritative job state. All mutation goes through
// CompareAndUpdate so concurrent sub-task completions never lose updates.
type Store interface {
	Create(ctx context.Context, job *models.TransformJob) error
	Get(ctx context.Context, jobID string) (*models.TransformJob, error)
	CompareAndUpdate(ctx context.Context, jobID string, expectedVersion int64, mutate Mutator) (*models.TransformJob, error)
	Delete(ctx context.Context, jobID string) error
	ListTerminalBefore(ctx context.Context, cutoff time.Time) ([]*models.TransformJob, error)
}
