package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/viralsplit/viralsplit-backend/internal/models"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
)

const (
	progressKeyPrefix   = "transform:progress:"
	eventsChannelPrefix = "transform:events:"
	snapshotTTL         = 24 * time.Hour
)

type transformRedisRepo struct {
	redisClient *redis.Client
}

func NewTransformRedisRepo(redisClient *redis.Client) transform.RedisRepository {
	return &transformRedisRepo{
		redisClient: redisClient,
	}
}

func (r *transformRedisRepo) SaveSnapshot(ctx context.Context, job *models.TransformJob) error {
	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	key := progressKeyPrefix + job.JobID
	pipe := r.redisClient.Pipeline()
	pipe.HSet(ctx, key, "status", string(job.Status))
	pipe.HSet(ctx, key, "progress", job.Progress)
	pipe.HSet(ctx, key, "job_data", string(jobData))
	pipe.Expire(ctx, key, snapshotTTL)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (r *transformRedisRepo) GetSnapshot(ctx context.Context, jobID string) (*models.TransformJob, error) {
	jobData, err := r.redisClient.HGet(ctx, progressKeyPrefix+jobID, "job_data").Result()
	if err != nil {
		if err == redis.Nil {
			return nil, transform.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job data: %w", err)
	}
	job := &models.TransformJob{}
	if err = json.Unmarshal([]byte(jobData), job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job data: %w", err)
	}
	return job, nil
}

func (r *transformRedisRepo) PublishSnapshot(ctx context.Context, job *models.TransformJob) error {
	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return r.redisClient.Publish(ctx, eventsChannelPrefix+job.JobID, string(jobData)).Err()
}

func (r *transformRedisRepo) DeleteSnapshot(ctx context.Context, jobID string) error {
	return r.redisClient.Del(ctx, progressKeyPrefix+jobID).Err()
}
