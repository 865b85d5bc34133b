package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/viralsplit/viralsplit-backend/internal/models"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
)

type archiveRepo struct {
	db *sqlx.DB
}

func NewArchiveRepo(db *sqlx.DB) transform.ArchiveRepository {
	return &archiveRepo{
		db: db,
	}
}

type archivedJobRow struct {
	JobID        string    `db:"job_id"`
	SourceType   string    `db:"source_type"`
	SourceValue  string    `db:"source_value"`
	Platforms    []byte    `db:"platforms"`
	Status       string    `db:"status"`
	Progress     int       `db:"progress"`
	PerPlatform  []byte    `db:"per_platform"`
	Degraded     bool      `db:"degraded"`
	ErrorMessage string    `db:"error_message"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (a *archiveRepo) ArchiveJob(ctx context.Context, job *models.TransformJob) error {
	platforms, err := json.Marshal(job.Platforms)
	if err != nil {
		return errors.Wrap(err, "archiveRepo.ArchiveJob.MarshalPlatforms")
	}
	perPlatform, err := json.Marshal(job.PerPlatform)
	if err != nil {
		return errors.Wrap(err, "archiveRepo.ArchiveJob.MarshalPerPlatform")
	}
	_, err = a.db.ExecContext(
		ctx,
		archiveJobQuery,
		job.JobID,
		string(job.Source.Type),
		job.Source.Value,
		platforms,
		string(job.Status),
		job.Progress,
		perPlatform,
		job.Degraded,
		job.Error,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "archiveRepo.ArchiveJob.ExecContext")
	}
	return nil
}

func (a *archiveRepo) GetArchivedJob(ctx context.Context, jobID string) (*models.TransformJob, error) {
	row := &archivedJobRow{}
	if err := a.db.GetContext(ctx, row, getArchivedJobQuery, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transform.ErrJobNotFound
		}
		return nil, errors.Wrap(err, "archiveRepo.GetArchivedJob.GetContext")
	}

	job := &models.TransformJob{
		JobID: row.JobID,
		Source: models.JobSource{
			Type:  models.SourceType(row.SourceType),
			Value: row.SourceValue,
		},
		Status:    models.JobStatus(row.Status),
		Progress:  row.Progress,
		Degraded:  row.Degraded,
		Error:     row.ErrorMessage,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Platforms, &job.Platforms); err != nil {
		return nil, errors.Wrap(err, "archiveRepo.GetArchivedJob.UnmarshalPlatforms")
	}
	if err := json.Unmarshal(row.PerPlatform, &job.PerPlatform); err != nil {
		return nil, errors.Wrap(err, "archiveRepo.GetArchivedJob.UnmarshalPerPlatform")
	}
	return job, nil
}
