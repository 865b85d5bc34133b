package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_AppliesDefaults(t *testing.T) {
	v := viper.New()
	v.Set("server.Port", ":8080")

	cfg, err := ParseConfig(v)
	require.NoError(t, err)

	require.Equal(t, "memory", cfg.Worker.QueueBackend)
	require.Equal(t, 4, cfg.Worker.WorkerCount)
	require.Equal(t, 64, cfg.Worker.QueueDepth)
	require.Equal(t, 8, cfg.Worker.JobParallelism)
	require.Equal(t, 80.0, cfg.Worker.MaxCPUUsage)
	require.Equal(t, "yt-dlp", cfg.Tools.DownloaderBin)
	require.Equal(t, "ffmpeg", cfg.Tools.TranscoderBin)
	require.Equal(t, "ffprobe", cfg.Tools.ProbeBin)
	require.Equal(t, 30*time.Second, cfg.Tools.DownloaderTimeout())
	require.Equal(t, 5*time.Minute, cfg.Tools.TranscodeTimeout())
	require.Equal(t, time.Hour, cfg.Worker.Retention())
	require.Equal(t, time.Minute, cfg.Worker.SweepInterval())
}

func TestParseConfig_ClampsParallelism(t *testing.T) {
	v := viper.New()
	v.Set("worker.JobParallelism", 64)

	cfg, err := ParseConfig(v)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Worker.JobParallelism)
}

func TestParseConfig_DerivesCDNBase(t *testing.T) {
	v := viper.New()
	v.Set("s3.Endpoint", "http://localhost:9000")
	v.Set("s3.OutputBucket", "outputs")

	cfg, err := ParseConfig(v)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000/outputs", cfg.S3.CDNBase)
}
