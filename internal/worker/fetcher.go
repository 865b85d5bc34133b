package worker

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/viralsplit/viralsplit-backend/internal/config"
	"github.com/viralsplit/viralsplit-backend/internal/models"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
	"github.com/viralsplit/viralsplit-backend/pkg/logger"
)

const probeTimeout = 5 * time.Second

// Fetcher resolves a job source to a local file. The returned bool reports
// whether the simulated fallback produced the file.
type Fetcher interface {
	Fetch(ctx context.Context, source models.JobSource, destDir string) (string, bool, error)
}

type mediaFetcher struct {
	cfg     *config.Config
	awsRepo transform.AWSRepository
	logger  logger.Logger
}

func NewMediaFetcher(cfg *config.Config, awsRepo transform.AWSRepository, log logger.Logger) Fetcher {
	return &mediaFetcher{
		cfg:     cfg,
		awsRepo: awsRepo,
		logger:  log,
	}
}

func (f *mediaFetcher) Fetch(ctx context.Context, source models.JobSource, destDir string) (string, bool, error) {
	localPath := filepath.Join(destDir, "input.mp4")
	switch source.Type {
	case models.SourceUpload:
		// Trusted local object, no retry or fallback.
		if err := f.fetchUpload(ctx, source.Value, localPath); err != nil {
			return "", false, err
		}
		return localPath, false, nil
	case models.SourceURL:
		if err := f.fetchRemote(ctx, source.Value, localPath); err != nil {
			// The downloader is optional infrastructure. Degrade to a
			// simulated source instead of aborting the job.
			f.logger.Warnf("fetcher - downloader failed for %s, using simulated source: %v", source.Value, err)
			if simErr := writeSimulatedSource(source.Value, localPath); simErr != nil {
				return "", false, fmt.Errorf("simulated fetch failed: %w", simErr)
			}
			return localPath, true, nil
		}
		return localPath, false, nil
	default:
		return "", false, fmt.Errorf("unsupported source type: %s", source.Type)
	}
}

func (f *mediaFetcher) fetchUpload(ctx context.Context, key, localPath string) error {
	body, err := f.awsRepo.GetArtifact(ctx, f.cfg.S3.InputBucket, key)
	if err != nil {
		return fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer body.Close()

	outFile, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local video file: %w", err)
	}
	defer outFile.Close()
	if _, err = io.Copy(outFile, body); err != nil {
		return fmt.Errorf("failed to write video file: %w", err)
	}
	return nil
}

func (f *mediaFetcher) fetchRemote(ctx context.Context, sourceURL, localPath string) error {
	if err := f.probeDownloader(ctx); err != nil {
		return fmt.Errorf("downloader probe failed: %w", err)
	}

	dlCtx, cancel := context.WithTimeout(ctx, f.cfg.Tools.DownloaderTimeout())
	defer cancel()

	cmd := exec.CommandContext(dlCtx, f.cfg.Tools.DownloaderBin,
		"-f", "b",
		"-o", localPath,
		"--retries", strconv.Itoa(f.cfg.Tools.DownloaderRetries),
		"--socket-timeout", "10",
		"--no-warnings",
		"--no-playlist",
		sourceURL,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("downloader failed: %w, stderr: %s", err, stderr.String())
	}
	if _, err := os.Stat(localPath); err != nil {
		return fmt.Errorf("downloader produced no output: %w", err)
	}
	return nil
}

func (f *mediaFetcher) probeDownloader(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return exec.CommandContext(probeCtx, f.cfg.Tools.DownloaderBin, "--version").Run()
}

// writeSimulatedSource synthesizes a deterministic placeholder derived from
// the source URL so degraded jobs are reproducible.
func writeSimulatedSource(sourceURL, localPath string) error {
	digest := sha256.Sum256([]byte(sourceURL))
	var buf bytes.Buffer
	buf.WriteString("SIMULATED_SOURCE v1\n")
	buf.WriteString(fmt.Sprintf("origin: %s\n", sourceURL))
	for i := 0; i < 128; i++ {
		buf.Write(digest[:])
	}
	return os.WriteFile(localPath, buf.Bytes(), 0644)
}
