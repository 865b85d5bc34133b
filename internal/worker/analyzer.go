package worker

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/viralsplit/viralsplit-backend/internal/config"
)

type MediaInfo struct {
	Width    int
	Height   int
	Duration float64
}

// Analyzer confirms the fetched media is usable before any fan-out starts.
type Analyzer interface {
	Probe(ctx context.Context, inputPath string) (*MediaInfo, error)
}

type ffprobeAnalyzer struct {
	cfg *config.Config
}

func NewFFProbeAnalyzer(cfg *config.Config) Analyzer {
	return &ffprobeAnalyzer{cfg: cfg}
}

func (a *ffprobeAnalyzer) Probe(ctx context.Context, inputPath string) (*MediaInfo, error) {
	cmd := exec.CommandContext(ctx, a.cfg.Tools.ProbeBin,
		"-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=width,height", "-of", "csv=p=0", inputPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffprobe error: %v output: %v", err, string(output))
	}

	trimmedOutput := strings.TrimSpace(string(output))
	trimmedOutput = strings.TrimRight(trimmedOutput, ",")
	parts := strings.Split(trimmedOutput, ",")

	if len(parts) != 2 {
		return nil, fmt.Errorf("unexpected ffprobe output: %s", trimmedOutput)
	}

	width, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid width: %v", err)
	}

	height, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid height: %v", err)
	}

	cmd = exec.CommandContext(ctx, a.cfg.Tools.ProbeBin, "-v", "error", "-show_entries",
		"format=duration", "-of", "csv=p=0", inputPath)
	durationOutput, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffprobe duration error: %v", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(durationOutput)), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid duration: %v", err)
	}

	if width <= 0 || height <= 0 || duration <= 0 {
		return nil, fmt.Errorf("unusable media: %dx%d, %.2fs", width, height, duration)
	}

	return &MediaInfo{
		Width:    width,
		Height:   height,
		Duration: duration,
	}, nil
}
