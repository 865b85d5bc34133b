package transform

import (
	"context"

	"github.com/viralsplit/viralsplit-backend/internal/models"
)

// RedisRepository mirrors job snapshots for cross-process status reads.
// It is write-through from the store's update hook, never an independent
// progress mechanism.
type RedisRepository interface {
	SaveSnapshot(ctx context.Context, job *models.TransformJob) error
	GetSnapshot(ctx context.Context, jobID string) (*models.TransformJob, error)
	PublishSnapshot(ctx context.Context, job *models.TransformJob) error
	DeleteSnapshot(ctx context.Context, jobID string) error
}
