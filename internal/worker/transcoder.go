package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/viralsplit/viralsplit-backend/internal/config"
	"github.com/viralsplit/viralsplit-backend/internal/models"
	"github.com/viralsplit/viralsplit-backend/pkg/logger"
)

// ErrTranscodeTimeout marks a platform sub-task killed at its deadline.
var ErrTranscodeTimeout = errors.New("transcode timed out")

// Transcoder produces one rendition per invocation. A failure or timeout
// affects only the calling platform sub-task.
type Transcoder interface {
	Transform(ctx context.Context, inputPath, outputPath string, spec models.PlatformSpec) error
}

type ffmpegTranscoder struct {
	cfg    *config.Config
	logger logger.Logger
}

func NewFFMpegTranscoder(cfg *config.Config, log logger.Logger) Transcoder {
	return &ffmpegTranscoder{
		cfg:    cfg,
		logger: log,
	}
}

func (t *ffmpegTranscoder) Transform(ctx context.Context, inputPath, outputPath string, spec models.PlatformSpec) error {
	runCtx, cancel := context.WithTimeout(ctx, t.cfg.Tools.TranscodeTimeout())
	defer cancel()

	cmd := exec.CommandContext(runCtx, t.cfg.Tools.TranscoderBin, buildTranscodeArgs(inputPath, outputPath, spec)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return ErrTranscodeTimeout
		}
		return fmt.Errorf("transcode failed: %v, stderr: %s", err, stderr.String())
	}
	return nil
}

// writeSimulatedRendition derives a deterministic placeholder rendition
// from a simulated source, one per platform profile.
func writeSimulatedRendition(inputPath, outputPath string, spec models.PlatformSpec) error {
	input, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read simulated source: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("SIMULATED_RENDITION v1\n")
	buf.WriteString(fmt.Sprintf("profile: %s %dx%d %dfps %s max%ds\n",
		spec.Name, spec.Width, spec.Height, spec.FPS, spec.Bitrate, spec.MaxDuration))
	buf.Write(input)
	return os.WriteFile(outputPath, buf.Bytes(), 0644)
}

// buildTranscodeArgs is deterministic for a given input/output/spec triple.
func buildTranscodeArgs(inputPath, outputPath string, spec models.PlatformSpec) []string {
	return []string{
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale=%d:%d", spec.Width, spec.Height),
		"-r", strconv.Itoa(spec.FPS),
		"-t", strconv.Itoa(spec.MaxDuration),
		"-c:v", "libx264",
		"-preset", "fast",
		"-b:v", spec.Bitrate,
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-y", outputPath,
	}
}
