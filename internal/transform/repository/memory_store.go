package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viralsplit/viralsplit-backend/internal/models"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
	"github.com/viralsplit/viralsplit-backend/pkg/logger"
)

// memoryStore is the authoritative in-memory job store. Every successful
// mutation bumps the version, publishes exactly one snapshot and mirrors
// the job to redis when a mirror is configured.
type memoryStore struct {
	mu sync.RWMutex
	// pubMu serializes broadcasts in commit order so subscribers never
	// observe snapshots out of version order.
	pubMu     sync.Mutex
	jobs      map[string]*models.TransformJob
	publisher transform.Publisher
	mirror    transform.RedisRepository
	logger    logger.Logger
}

func NewMemoryStore(publisher transform.Publisher, mirror transform.RedisRepository, log logger.Logger) transform.Store {
	return &memoryStore{
		jobs:      make(map[string]*models.TransformJob),
		publisher: publisher,
		mirror:    mirror,
		logger:    log,
	}
}

func (s *memoryStore) Create(ctx context.Context, job *models.TransformJob) error {
	s.mu.Lock()
	if _, exists := s.jobs[job.JobID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("job %s already exists", job.JobID)
	}
	now := time.Now().UTC()
	job.Version = 1
	job.CreatedAt = now
	job.UpdatedAt = now
	snapshot := job.Clone()
	s.jobs[job.JobID] = snapshot
	s.pubMu.Lock()
	s.mu.Unlock()

	s.broadcast(ctx, snapshot.Clone())
	s.pubMu.Unlock()
	return nil
}

func (s *memoryStore) Get(ctx context.Context, jobID string) (*models.TransformJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, transform.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (s *memoryStore) CompareAndUpdate(ctx context.Context, jobID string, expectedVersion int64, mutate transform.Mutator) (*models.TransformJob, error) {
	s.mu.Lock()
	current, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return nil, transform.ErrJobNotFound
	}
	if current.Version != expectedVersion {
		s.mu.Unlock()
		return nil, transform.ErrVersionConflict
	}
	if current.Status.Terminal() {
		s.mu.Unlock()
		return nil, transform.ErrTerminalState
	}

	next := current.Clone()
	if err := mutate(next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if next.Status.Rank() < current.Status.Rank() {
		s.mu.Unlock()
		return nil, fmt.Errorf("job %s: illegal transition %s -> %s", jobID, current.Status, next.Status)
	}
	// Progress is monotonically non-decreasing for the job's lifetime.
	if next.Progress < current.Progress {
		next.Progress = current.Progress
	}
	next.JobID = current.JobID
	next.Version = current.Version + 1
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	s.jobs[jobID] = next
	snapshot := next.Clone()
	s.pubMu.Lock()
	s.mu.Unlock()

	s.broadcast(ctx, snapshot)
	s.pubMu.Unlock()
	return snapshot.Clone(), nil
}

func (s *memoryStore) Delete(ctx context.Context, jobID string) error {
	s.mu.Lock()
	if _, ok := s.jobs[jobID]; !ok {
		s.mu.Unlock()
		return transform.ErrJobNotFound
	}
	delete(s.jobs, jobID)
	s.mu.Unlock()

	// The mirrored snapshot must go with the job, otherwise cross-process
	// readers keep seeing an entry the live store no longer owns.
	if s.mirror != nil {
		if err := s.mirror.DeleteSnapshot(ctx, jobID); err != nil {
			s.logger.Warnf("memoryStore - failed to drop mirror for job %s: %v", jobID, err)
		}
	}
	return nil
}

func (s *memoryStore) ListTerminalBefore(ctx context.Context, cutoff time.Time) ([]*models.TransformJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.TransformJob
	for _, job := range s.jobs {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			out = append(out, job.Clone())
		}
	}
	return out, nil
}

func (s *memoryStore) broadcast(ctx context.Context, job *models.TransformJob) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, job)
	}
	if s.mirror == nil {
		return
	}
	if err := s.mirror.SaveSnapshot(ctx, job); err != nil {
		s.logger.Warnf("memoryStore - failed to mirror job %s: %v", job.JobID, err)
	}
	if err := s.mirror.PublishSnapshot(ctx, job); err != nil {
		s.logger.Warnf("memoryStore - failed to publish job %s to redis: %v", job.JobID, err)
	}
}
