package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/viralsplit/viralsplit-backend/internal/config"
	"github.com/viralsplit/viralsplit-backend/internal/models"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
	"github.com/viralsplit/viralsplit-backend/pkg/logger"
)

func testLogger() logger.Logger {
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "Development"},
		Logger: config.Logger{Level: "error", Encoding: "console"},
	}
	l := logger.NewApiLogger(cfg)
	l.InitLogger()
	return l
}

type ucStub struct {
	submitJob *models.TransformJob
	submitErr error
	getJob    *models.TransformJob
	getErr    error
	events    chan *models.TransformJob
}

func (u *ucStub) Submit(ctx context.Context, input *models.TransformInput) (*models.TransformJob, error) {
	if u.submitErr != nil {
		return nil, u.submitErr
	}
	return u.submitJob, nil
}

func (u *ucStub) GetJob(ctx context.Context, jobID string) (*models.TransformJob, error) {
	if u.getErr != nil {
		return nil, u.getErr
	}
	return u.getJob, nil
}

func (u *ucStub) Subscribe(ctx context.Context, jobID string) (<-chan *models.TransformJob, func(), error) {
	if u.getErr != nil {
		return nil, nil, u.getErr
	}
	return u.events, func() {}, nil
}

func (u *ucStub) GetUploadURL(ctx context.Context, input *models.UploadURLInput) (string, string, error) {
	return "https://s3.example.com/uploads/x/clip.mp4?signed", "uploads/x/clip.mp4", nil
}

func doRequest(h echo.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	_ = h(c)
	return rec
}

func TestSubmitTransform_Accepted(t *testing.T) {
	uc := &ucStub{submitJob: &models.TransformJob{JobID: "job-1", Status: models.JobStatusQueued}}
	h := NewTransformHandlers(uc, testLogger())

	body := `{"source":{"type":"url","value":"https://example.com/v"},"platforms":["tiktok"]}`
	rec := doRequest(h.SubmitTransform(), http.MethodPost, "/api/v1/transform", body, nil)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "job-1", resp["job_id"])
}

func TestSubmitTransform_Backpressure(t *testing.T) {
	uc := &ucStub{submitErr: transform.ErrBackpressure}
	h := NewTransformHandlers(uc, testLogger())

	body := `{"source":{"type":"url","value":"https://example.com/v"},"platforms":["tiktok"]}`
	rec := doRequest(h.SubmitTransform(), http.MethodPost, "/api/v1/transform", body, nil)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSubmitTransform_InvalidPlatform(t *testing.T) {
	uc := &ucStub{submitErr: transform.ErrInvalidPlatform}
	h := NewTransformHandlers(uc, testLogger())

	body := `{"source":{"type":"url","value":"https://example.com/v"},"platforms":["myspace"]}`
	rec := doRequest(h.SubmitTransform(), http.MethodPost, "/api/v1/transform", body, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobStatus(t *testing.T) {
	job := &models.TransformJob{JobID: "job-1", Status: models.JobStatusTransforming, Progress: 60}
	h := NewTransformHandlers(&ucStub{getJob: job}, testLogger())

	rec := doRequest(h.GetJobStatus(), http.MethodGet, "/api/v1/transform/job-1", "", map[string]string{"job_id": "job-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.TransformJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "job-1", resp.JobID)
	require.Equal(t, 60, resp.Progress)
}

func TestGetJobStatus_NotFound(t *testing.T) {
	h := NewTransformHandlers(&ucStub{getErr: transform.ErrJobNotFound}, testLogger())

	rec := doRequest(h.GetJobStatus(), http.MethodGet, "/api/v1/transform/missing", "", map[string]string{"job_id": "missing"})

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamProgress_SendsSnapshotsUntilTerminal(t *testing.T) {
	events := make(chan *models.TransformJob, 4)
	events <- &models.TransformJob{JobID: "job-1", Status: models.JobStatusTransforming, Progress: 60, Version: 3}
	events <- &models.TransformJob{JobID: "job-1", Status: models.JobStatusCompleted, Progress: 100, Version: 4}
	uc := &ucStub{
		getJob: &models.TransformJob{JobID: "job-1", Status: models.JobStatusFetching, Progress: 5, Version: 2},
		events: events,
	}
	h := NewTransformHandlers(uc, testLogger())

	rec := doRequest(h.StreamProgress(), http.MethodGet, "/api/v1/transform/job-1/events", "", map[string]string{"job_id": "job-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	body := rec.Body.String()
	require.Contains(t, body, "event: progress")
	require.Contains(t, body, `"status":"fetching"`)
	require.Contains(t, body, `"status":"transforming"`)
	require.Contains(t, body, `"status":"completed"`)
}

// Snapshots published between Subscribe and the catch-up read sit buffered
// at older versions; replaying them would walk progress backwards.
func TestStreamProgress_SkipsStaleBufferedSnapshots(t *testing.T) {
	events := make(chan *models.TransformJob, 4)
	events <- &models.TransformJob{JobID: "job-1", Status: models.JobStatusTransforming, Progress: 20, Version: 4}
	events <- &models.TransformJob{JobID: "job-1", Status: models.JobStatusCompleted, Progress: 100, Version: 7}
	uc := &ucStub{
		getJob: &models.TransformJob{JobID: "job-1", Status: models.JobStatusTransforming, Progress: 60, Version: 6},
		events: events,
	}
	h := NewTransformHandlers(uc, testLogger())

	rec := doRequest(h.StreamProgress(), http.MethodGet, "/api/v1/transform/job-1/events", "", map[string]string{"job_id": "job-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.NotContains(t, body, `"progress":20`)

	// Every delivered snapshot must be at least as far along as the last one.
	last := -1
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var snap models.TransformJob
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap))
		require.GreaterOrEqual(t, snap.Progress, last)
		last = snap.Progress
	}
	require.Equal(t, 100, last)
}

func TestStreamProgress_UnknownJob(t *testing.T) {
	h := NewTransformHandlers(&ucStub{getErr: transform.ErrJobNotFound}, testLogger())

	rec := doRequest(h.StreamProgress(), http.MethodGet, "/api/v1/transform/missing/events", "", map[string]string{"job_id": "missing"})

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUploadURL(t *testing.T) {
	h := NewTransformHandlers(&ucStub{}, testLogger())

	body := `{"filename":"clip.mp4","file_size":1048576,"mime_type":"video/mp4"}`
	rec := doRequest(h.GetUploadURL(), http.MethodPost, "/api/v1/transform/upload-url", body, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "uploads/x/clip.mp4", resp["key"])
	require.Contains(t, resp["upload_url"], "signed")
}
