package worker

import (
	"context"
	"time"

	"github.com/viralsplit/viralsplit-backend/internal/config"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
	"github.com/viralsplit/viralsplit-backend/pkg/logger"
)

// Sweeper archives terminal jobs past the retention window and evicts them
// from the live store.
type Sweeper struct {
	cfg     *config.Config
	store   transform.Store
	archive transform.ArchiveRepository
	mirror  transform.RedisRepository
	logger  logger.Logger
}

func NewSweeper(cfg *config.Config, store transform.Store, archive transform.ArchiveRepository, mirror transform.RedisRepository, log logger.Logger) *Sweeper {
	return &Sweeper{
		cfg:     cfg,
		store:   store,
		archive: archive,
		mirror:  mirror,
		logger:  log,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Worker.SweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.Worker.Retention())
	jobs, err := s.store.ListTerminalBefore(ctx, cutoff)
	if err != nil {
		s.logger.Errorf("sweeper: failed to list terminal jobs: %v", err)
		return
	}
	for _, job := range jobs {
		if s.archive != nil {
			if err := s.archive.ArchiveJob(ctx, job); err != nil {
				s.logger.Errorf("sweeper: failed to archive job %s: %v", job.JobID, err)
				continue
			}
		}
		if err := s.store.Delete(ctx, job.JobID); err != nil {
			s.logger.Errorf("sweeper: failed to evict job %s: %v", job.JobID, err)
			continue
		}
		if s.mirror != nil {
			if err := s.mirror.DeleteSnapshot(ctx, job.JobID); err != nil {
				s.logger.Warnf("sweeper: failed to drop snapshot for job %s: %v", job.JobID, err)
			}
		}
		s.logger.Infof("sweeper: archived job %s (%s)", job.JobID, job.Status)
	}
}
