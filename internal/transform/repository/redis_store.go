package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/viralsplit/viralsplit-backend/internal/models"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
	"github.com/viralsplit/viralsplit-backend/pkg/logger"
)

const jobIndexKey = "transform:jobs:index"

// redisStore is the redis-backed job store for split server/worker
// deployments. Optimistic concurrency comes from WATCH on the job key plus
// the version carried inside the snapshot.
type redisStore struct {
	redisClient *redis.Client
	logger      logger.Logger
}

func NewRedisStore(redisClient *redis.Client, log logger.Logger) transform.Store {
	return &redisStore{
		redisClient: redisClient,
		logger:      log,
	}
}

func (s *redisStore) Create(ctx context.Context, job *models.TransformJob) error {
	now := time.Now().UTC()
	job.Version = 1
	job.CreatedAt = now
	job.UpdatedAt = now

	key := progressKeyPrefix + job.JobID
	exists, err := s.redisClient.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check job existence: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("job %s already exists", job.JobID)
	}
	if err := s.write(ctx, job); err != nil {
		return err
	}
	if err := s.redisClient.SAdd(ctx, jobIndexKey, job.JobID).Err(); err != nil {
		return fmt.Errorf("failed to index job: %w", err)
	}
	s.publish(ctx, job)
	return nil
}

func (s *redisStore) Get(ctx context.Context, jobID string) (*models.TransformJob, error) {
	return s.read(ctx, jobID)
}

func (s *redisStore) CompareAndUpdate(ctx context.Context, jobID string, expectedVersion int64, mutate transform.Mutator) (*models.TransformJob, error) {
	key := progressKeyPrefix + jobID
	var updated *models.TransformJob

	txf := func(tx *redis.Tx) error {
		data, err := tx.HGet(ctx, key, "job_data").Result()
		if err == redis.Nil {
			return transform.ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get job data: %w", err)
		}
		current := &models.TransformJob{}
		if err = json.Unmarshal([]byte(data), current); err != nil {
			return fmt.Errorf("failed to unmarshal job data: %w", err)
		}
		if current.Version != expectedVersion {
			return transform.ErrVersionConflict
		}
		if current.Status.Terminal() {
			return transform.ErrTerminalState
		}

		next := current.Clone()
		if err := mutate(next); err != nil {
			return err
		}
		if next.Status.Rank() < current.Status.Rank() {
			return fmt.Errorf("job %s: illegal transition %s -> %s", jobID, current.Status, next.Status)
		}
		if next.Progress < current.Progress {
			next.Progress = current.Progress
		}
		next.JobID = current.JobID
		next.Version = current.Version + 1
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = time.Now().UTC()

		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "status", string(next.Status))
			pipe.HSet(ctx, key, "progress", next.Progress)
			pipe.HSet(ctx, key, "job_data", string(payload))
			pipe.Expire(ctx, key, snapshotTTL)
			return nil
		})
		if err != nil {
			return err
		}
		updated = next
		return nil
	}

	if err := s.redisClient.Watch(ctx, txf, key); err != nil {
		if err == redis.TxFailedErr {
			return nil, transform.ErrVersionConflict
		}
		return nil, err
	}

	s.publish(ctx, updated)
	return updated.Clone(), nil
}

func (s *redisStore) Delete(ctx context.Context, jobID string) error {
	pipe := s.redisClient.Pipeline()
	pipe.Del(ctx, progressKeyPrefix+jobID)
	pipe.SRem(ctx, jobIndexKey, jobID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisStore) ListTerminalBefore(ctx context.Context, cutoff time.Time) ([]*models.TransformJob, error) {
	ids, err := s.redisClient.SMembers(ctx, jobIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list job index: %w", err)
	}
	var out []*models.TransformJob
	for _, id := range ids {
		job, err := s.read(ctx, id)
		if err != nil {
			if err == transform.ErrJobNotFound {
				// Snapshot expired; drop the dangling index entry.
				s.redisClient.SRem(ctx, jobIndexKey, id)
				continue
			}
			return nil, err
		}
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			out = append(out, job)
		}
	}
	return out, nil
}

func (s *redisStore) read(ctx context.Context, jobID string) (*models.TransformJob, error) {
	data, err := s.redisClient.HGet(ctx, progressKeyPrefix+jobID, "job_data").Result()
	if err != nil {
		if err == redis.Nil {
			return nil, transform.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job data: %w", err)
	}
	job := &models.TransformJob{}
	if err = json.Unmarshal([]byte(data), job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job data: %w", err)
	}
	return job, nil
}

func (s *redisStore) write(ctx context.Context, job *models.TransformJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	key := progressKeyPrefix + job.JobID
	pipe := s.redisClient.Pipeline()
	pipe.HSet(ctx, key, "status", string(job.Status))
	pipe.HSet(ctx, key, "progress", job.Progress)
	pipe.HSet(ctx, key, "job_data", string(payload))
	pipe.Expire(ctx, key, snapshotTTL)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write job: %w", err)
	}
	return nil
}

func (s *redisStore) publish(ctx context.Context, job *models.TransformJob) {
	payload, err := json.Marshal(job)
	if err != nil {
		s.logger.Warnf("redisStore - failed to marshal job %s for publish: %v", job.JobID, err)
		return
	}
	if err := s.redisClient.Publish(ctx, eventsChannelPrefix+job.JobID, string(payload)).Err(); err != nil {
		s.logger.Warnf("redisStore - failed to publish job %s: %v", job.JobID, err)
	}
}
