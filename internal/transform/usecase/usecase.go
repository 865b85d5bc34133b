package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/viralsplit/viralsplit-backend/internal/config"
	"github.com/viralsplit/viralsplit-backend/internal/models"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
	"github.com/viralsplit/viralsplit-backend/pkg/logger"
	"github.com/viralsplit/viralsplit-backend/pkg/utils"
)

type transformUC struct {
	cfg       *config.Config
	store     transform.Store
	scheduler transform.Scheduler
	publisher transform.Publisher
	awsRepo   transform.AWSRepository
	archive   transform.ArchiveRepository
	logger    logger.Logger
}

func NewTransformUseCase(
	cfg *config.Config,
	store transform.Store,
	scheduler transform.Scheduler,
	publisher transform.Publisher,
	awsRepo transform.AWSRepository,
	archive transform.ArchiveRepository,
	log logger.Logger,
) transform.UseCase {
	return &transformUC{
		cfg:       cfg,
		store:     store,
		scheduler: scheduler,
		publisher: publisher,
		awsRepo:   awsRepo,
		archive:   archive,
		logger:    log,
	}
}

// Submit validates the request, creates the job record and hands it to the
// scheduler. Validation failures and backpressure are surfaced synchronously
// and never leave a job behind.
func (u *transformUC) Submit(ctx context.Context, input *models.TransformInput) (*models.TransformJob, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		u.logger.Errorf("Submit - ValidateStruct error: %v", err)
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if len(input.Platforms) == 0 {
		return nil, transform.ErrEmptyPlatformList
	}

	seen := make(map[string]struct{}, len(input.Platforms))
	platforms := make([]string, 0, len(input.Platforms))
	for _, name := range input.Platforms {
		if _, ok := models.PlatformSpecFor(name); !ok {
			return nil, fmt.Errorf("%w: %s", transform.ErrInvalidPlatform, name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		platforms = append(platforms, name)
	}

	perPlatform := make(map[string]models.PlatformResult, len(platforms))
	for _, name := range platforms {
		perPlatform[name] = models.PlatformResult{State: models.PlatformPending}
	}

	job := &models.TransformJob{
		JobID:       uuid.New().String(),
		Source:      input.Source,
		Platforms:   platforms,
		Status:      models.JobStatusQueued,
		Progress:    0,
		PerPlatform: perPlatform,
	}

	if err := u.store.Create(ctx, job); err != nil {
		u.logger.Errorf("Submit - Create error: %v", err)
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	if err := u.scheduler.Submit(job.JobID); err != nil {
		if delErr := u.store.Delete(ctx, job.JobID); delErr != nil {
			u.logger.Warnf("Submit - rollback delete for job %s failed: %v", job.JobID, delErr)
		}
		if errors.Is(err, transform.ErrBackpressure) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to schedule job: %w", err)
	}
	u.logger.Infof("Submitted job %s for platforms %v", job.JobID, platforms)
	return job, nil
}

func (u *transformUC) GetJob(ctx context.Context, jobID string) (*models.TransformJob, error) {
	if jobID == "" {
		return nil, fmt.Errorf("invalid job id: cannot be empty")
	}
	job, err := u.store.Get(ctx, jobID)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, transform.ErrJobNotFound) || u.archive == nil {
		return nil, err
	}
	// Evicted from the live store after the retention window.
	return u.archive.GetArchivedJob(ctx, jobID)
}

func (u *transformUC) Subscribe(ctx context.Context, jobID string) (<-chan *models.TransformJob, func(), error) {
	if _, err := u.store.Get(ctx, jobID); err != nil {
		if !errors.Is(err, transform.ErrJobNotFound) || u.archive == nil {
			return nil, nil, err
		}
		// Jobs aged into the archive still answer the stream: deliver the
		// terminal snapshot once and close, mirroring GetJob's fallback.
		job, archErr := u.archive.GetArchivedJob(ctx, jobID)
		if archErr != nil {
			return nil, nil, archErr
		}
		ch := make(chan *models.TransformJob, 1)
		ch <- job
		close(ch)
		return ch, func() {}, nil
	}
	ch, cancel := u.publisher.Subscribe(jobID)
	return ch, cancel, nil
}

func (u *transformUC) GetUploadURL(ctx context.Context, input *models.UploadURLInput) (string, string, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		u.logger.Errorf("GetUploadURL - ValidateStruct error: %v", err)
		return "", "", fmt.Errorf("invalid input: %w", err)
	}
	key := fmt.Sprintf("uploads/%s/%s", uuid.New().String(), input.FileName)
	url, err := u.awsRepo.GetPresignedURL(ctx, input, key)
	if err != nil {
		u.logger.Errorf("GetUploadURL - GetPresignedURL error: %v", err)
		return "", "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url, key, nil
}
