package transform

import (
	"context"

	"github.com/viralsplit/viralsplit-backend/internal/models"
)

type UseCase interface {
	Submit(ctx context.Context, input *models.TransformInput) (*models.TransformJob, error)
	GetJob(ctx context.Context, jobID string) (*models.TransformJob, error)
	Subscribe(ctx context.Context, jobID string) (<-chan *models.TransformJob, func(), error)
	GetUploadURL(ctx context.Context, input *models.UploadURLInput) (string, string, error)
}
