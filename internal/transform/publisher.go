package transform

import (
	"context"

	"github.com/viralsplit/viralsplit-backend/internal/models"
)

// Publisher fans job snapshots out to independent observers. A slow or
// disconnected subscriber must never stall a publish.
type Publisher interface {
	Publish(ctx context.Context, job *models.TransformJob)
	Subscribe(jobID string) (<-chan *models.TransformJob, func())
	Close()
}
