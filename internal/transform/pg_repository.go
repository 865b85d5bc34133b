package transform

import (
	"context"

	"github.com/viralsplit/viralsplit-backend/internal/models"
)

// ArchiveRepository persists terminal jobs past the in-memory retention
// window.
type ArchiveRepository interface {
	ArchiveJob(ctx context.Context, job *models.TransformJob) error
	GetArchivedJob(ctx context.Context, jobID string) (*models.TransformJob, error)
}
