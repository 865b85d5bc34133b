package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/viralsplit/viralsplit-backend/internal/config"
	"github.com/viralsplit/viralsplit-backend/internal/models"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
	"github.com/viralsplit/viralsplit-backend/pkg/logger"
)

const (
	progressFetching      = 5
	progressAnalyzing     = 15
	progressTransformBase = 20
	maxFanout             = 8
	maxCASRetries         = 32
)

// Processor owns one job end-to-end: fetch, analyze, per-platform fan-out,
// terminal aggregation. Only the job store is shared state; everything else
// lives in a per-job temp dir owned by the processing worker.
type Processor struct {
	cfg        *config.Config
	store      transform.Store
	awsRepo    transform.AWSRepository
	fetcher    Fetcher
	analyzer   Analyzer
	transcoder Transcoder
	logger     logger.Logger
}

func NewProcessor(
	cfg *config.Config,
	store transform.Store,
	awsRepo transform.AWSRepository,
	fetcher Fetcher,
	analyzer Analyzer,
	transcoder Transcoder,
	log logger.Logger,
) *Processor {
	return &Processor{
		cfg:        cfg,
		store:      store,
		awsRepo:    awsRepo,
		fetcher:    fetcher,
		analyzer:   analyzer,
		transcoder: transcoder,
		logger:     log,
	}
}

func (p *Processor) Process(ctx context.Context, jobID string) error {
	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	workDir, err := os.MkdirTemp("", "transform_")
	if err != nil {
		return p.failJob(ctx, jobID, fmt.Sprintf("failed to create work dir: %v", err))
	}
	defer os.RemoveAll(workDir)

	if err := p.update(ctx, jobID, func(j *models.TransformJob) error {
		j.Status = models.JobStatusFetching
		j.Progress = progressFetching
		return nil
	}); err != nil {
		return err
	}

	localPath, degraded, err := p.fetcher.Fetch(ctx, job.Source, workDir)
	if err != nil {
		return p.failJob(ctx, jobID, fmt.Sprintf("fetch failed: %v", err))
	}

	if err := p.update(ctx, jobID, func(j *models.TransformJob) error {
		j.Status = models.JobStatusAnalyzing
		j.Progress = progressAnalyzing
		j.Degraded = degraded
		return nil
	}); err != nil {
		return err
	}

	// A simulated source is not real media; probing it would always fail.
	if !degraded {
		if _, err := p.analyzer.Probe(ctx, localPath); err != nil {
			return p.failJob(ctx, jobID, fmt.Sprintf("analysis failed: %v", err))
		}
	}

	if err := p.update(ctx, jobID, func(j *models.TransformJob) error {
		j.Status = models.JobStatusTransforming
		j.Progress = progressTransformBase
		return nil
	}); err != nil {
		return err
	}

	parallelism := p.cfg.Worker.JobParallelism
	if parallelism <= 0 || parallelism > maxFanout {
		parallelism = maxFanout
	}
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	for _, platform := range job.Platforms {
		sem <- struct{}{}
		wg.Add(1)
		go func(platform string) {
			defer func() {
				<-sem
				wg.Done()
			}()
			p.runPlatform(ctx, jobID, platform, localPath, workDir, degraded)
		}(platform)
	}
	wg.Wait()

	return p.update(ctx, jobID, func(j *models.TransformJob) error {
		done := j.DoneCount()
		switch {
		case done == len(j.PerPlatform):
			j.Status = models.JobStatusCompleted
		case done > 0:
			j.Status = models.JobStatusPartiallyFailed
		default:
			j.Status = models.JobStatusFailed
			j.Error = "all platform transforms failed"
		}
		j.Progress = 100
		return nil
	})
}

// runPlatform executes one platform sub-task. Failures stay isolated to the
// platform entry; sibling sub-tasks and the job keep going.
func (p *Processor) runPlatform(ctx context.Context, jobID, platform, localPath, workDir string, degraded bool) {
	spec, ok := models.PlatformSpecFor(platform)
	if !ok {
		// Validated at submission; a miss here is a programming error.
		p.setPlatform(ctx, jobID, platform, models.PlatformResult{
			State: models.PlatformFailed,
			Error: "unknown platform",
		})
		return
	}

	p.setPlatform(ctx, jobID, platform, models.PlatformResult{State: models.PlatformRunning})

	outputPath := filepath.Join(workDir, platform+".mp4")
	if degraded {
		// The simulated source is not real media; carry the simulation
		// through to a placeholder rendition instead of invoking the tool.
		if err := writeSimulatedRendition(localPath, outputPath, spec); err != nil {
			p.setPlatform(ctx, jobID, platform, models.PlatformResult{
				State: models.PlatformFailed,
				Error: fmt.Sprintf("simulated rendition failed: %v", err),
			})
			return
		}
	} else if err := p.transcoder.Transform(ctx, localPath, outputPath, spec); err != nil {
		reason := err.Error()
		if errors.Is(err, ErrTranscodeTimeout) {
			reason = "timeout"
		}
		p.logger.Errorf("job %s: transcode for %s failed: %v", jobID, platform, err)
		p.setPlatform(ctx, jobID, platform, models.PlatformResult{
			State: models.PlatformFailed,
			Error: reason,
		})
		return
	}

	output, err := os.Open(outputPath)
	if err != nil {
		p.setPlatform(ctx, jobID, platform, models.PlatformResult{
			State: models.PlatformFailed,
			Error: fmt.Sprintf("missing transcode output: %v", err),
		})
		return
	}
	defer output.Close()

	key := fmt.Sprintf("outputs/%s/%s.mp4", jobID, platform)
	ref, err := p.awsRepo.PutArtifact(ctx, p.cfg.S3.OutputBucket, key, output)
	if err != nil {
		// Single attempt; artifact store failures surface per platform.
		p.logger.Errorf("job %s: artifact upload for %s failed: %v", jobID, platform, err)
		p.setPlatform(ctx, jobID, platform, models.PlatformResult{
			State: models.PlatformFailed,
			Error: fmt.Sprintf("artifact upload failed: %v", err),
		})
		return
	}

	p.setPlatform(ctx, jobID, platform, models.PlatformResult{
		State:       models.PlatformDone,
		ArtifactRef: ref,
	})
}

func (p *Processor) setPlatform(ctx context.Context, jobID, platform string, result models.PlatformResult) {
	err := p.update(ctx, jobID, func(j *models.TransformJob) error {
		j.PerPlatform[platform] = result
		j.Progress = transformProgress(j)
		return nil
	})
	if err != nil {
		p.logger.Errorf("job %s: failed to record %s state for %s: %v", jobID, result.State, platform, err)
	}
}

// transformProgress weights the fan-out share of the bar by settled
// platform sub-tasks.
func transformProgress(job *models.TransformJob) int {
	total := len(job.PerPlatform)
	if total == 0 {
		return progressTransformBase
	}
	settled := job.SettledCount()
	return progressTransformBase + (100-progressTransformBase)*settled/total
}

// update retries CompareAndUpdate on version conflicts so concurrent
// sub-task completions never lose writes.
func (p *Processor) update(ctx context.Context, jobID string, mutate transform.Mutator) error {
	for i := 0; i < maxCASRetries; i++ {
		job, err := p.store.Get(ctx, jobID)
		if err != nil {
			return err
		}
		if _, err = p.store.CompareAndUpdate(ctx, jobID, job.Version, mutate); err != nil {
			if errors.Is(err, transform.ErrVersionConflict) {
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("job %s: too many version conflicts", jobID)
}

func (p *Processor) failJob(ctx context.Context, jobID, reason string) error {
	p.logger.Errorf("job %s failed: %s", jobID, reason)
	return p.update(ctx, jobID, func(j *models.TransformJob) error {
		j.Status = models.JobStatusFailed
		j.Error = reason
		for platform, result := range j.PerPlatform {
			if !result.State.Terminal() {
				result.State = models.PlatformFailed
				result.Error = "job failed before transform"
				j.PerPlatform[platform] = result
			}
		}
		return nil
	})
}
