package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/viralsplit/viralsplit-backend/internal/models"
)

func newTestFetcher(t *testing.T) Fetcher {
	t.Helper()
	cfg := testConfig()
	// A binary that cannot exist forces the degraded path immediately.
	cfg.Tools.DownloaderBin = filepath.Join(t.TempDir(), "no-such-yt-dlp")
	cfg.Tools.DownloaderTimeoutSecs = 1
	cfg.Tools.DownloaderRetries = 1
	return NewMediaFetcher(cfg, &fakeAWS{}, testLogger())
}

func TestMediaFetcher_UploadSource(t *testing.T) {
	fetcher := newTestFetcher(t)

	path, degraded, err := fetcher.Fetch(context.Background(), models.JobSource{
		Type:  models.SourceUpload,
		Value: "uploads/abc/clip.mp4",
	}, t.TempDir())
	require.NoError(t, err)
	require.False(t, degraded)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "uploaded-bytes", string(data))
}

func TestMediaFetcher_URLFallsBackToSimulatedSource(t *testing.T) {
	fetcher := newTestFetcher(t)

	path, degraded, err := fetcher.Fetch(context.Background(), models.JobSource{
		Type:  models.SourceURL,
		Value: "https://example.com/watch?v=abc",
	}, t.TempDir())
	require.NoError(t, err)
	require.True(t, degraded)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "SIMULATED_SOURCE v1")
	require.Contains(t, string(data), "origin: https://example.com/watch?v=abc")
}

func TestMediaFetcher_SimulatedSourceIsDeterministic(t *testing.T) {
	fetcher := newTestFetcher(t)
	source := models.JobSource{Type: models.SourceURL, Value: "https://example.com/watch?v=abc"}

	pathA, _, err := fetcher.Fetch(context.Background(), source, t.TempDir())
	require.NoError(t, err)
	pathB, _, err := fetcher.Fetch(context.Background(), source, t.TempDir())
	require.NoError(t, err)

	dataA, err := os.ReadFile(pathA)
	require.NoError(t, err)
	dataB, err := os.ReadFile(pathB)
	require.NoError(t, err)
	require.Equal(t, dataA, dataB)

	other := models.JobSource{Type: models.SourceURL, Value: "https://example.com/watch?v=xyz"}
	pathC, _, err := fetcher.Fetch(context.Background(), other, t.TempDir())
	require.NoError(t, err)
	dataC, err := os.ReadFile(pathC)
	require.NoError(t, err)
	require.NotEqual(t, dataA, dataC)
}

func TestMediaFetcher_UnknownSourceType(t *testing.T) {
	fetcher := newTestFetcher(t)

	_, _, err := fetcher.Fetch(context.Background(), models.JobSource{
		Type:  "carrier-pigeon",
		Value: "coop 7",
	}, t.TempDir())
	require.Error(t, err)
}
