package transform

import (
	"context"
	"io"

	"github.com/viralsplit/viralsplit-backend/internal/models"
)

type AWSRepository interface {
	GetPresignedURL(ctx context.Context, input *models.UploadURLInput, key string) (string, error)
	PutArtifact(ctx context.Context, bucket, key string, body io.Reader) (string, error)
	GetArtifact(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	RemoveArtifact(ctx context.Context, bucket, key string) error
}
