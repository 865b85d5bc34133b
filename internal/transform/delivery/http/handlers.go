package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/viralsplit/viralsplit-backend/internal/models"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
	"github.com/viralsplit/viralsplit-backend/pkg/logger"
)

const keepaliveInterval = 30 * time.Second

type transformHandlers struct {
	transformUC transform.UseCase
	logger      logger.Logger
}

func NewTransformHandlers(transformUC transform.UseCase, log logger.Logger) transform.Handlers {
	return &transformHandlers{
		transformUC: transformUC,
		logger:      log,
	}
}

func (h *transformHandlers) SubmitTransform() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.TransformInput{}
		if err := c.Bind(input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		job, err := h.transformUC.Submit(c.Request().Context(), input)
		if err != nil {
			switch {
			case errors.Is(err, transform.ErrBackpressure):
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			case errors.Is(err, transform.ErrInvalidPlatform), errors.Is(err, transform.ErrEmptyPlatformList):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			default:
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
		}
		return c.JSON(http.StatusAccepted, map[string]string{"job_id": job.JobID})
	}
}

func (h *transformHandlers) GetJobStatus() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID := c.Param("job_id")
		job, err := h.transformUC.GetJob(c.Request().Context(), jobID)
		if err != nil {
			if errors.Is(err, transform.ErrJobNotFound) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "Job not found"})
			}
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, job)
	}
}

func (h *transformHandlers) StreamProgress() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID := c.Param("job_id")
		ch, cancel, err := h.transformUC.Subscribe(c.Request().Context(), jobID)
		if err != nil {
			if errors.Is(err, transform.ErrJobNotFound) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "Job not found"})
			}
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		defer cancel()

		res := c.Response()
		res.Header().Set(echo.HeaderContentType, "text/event-stream")
		res.Header().Set("Cache-Control", "no-cache")
		res.Header().Set("Connection", "keep-alive")
		res.WriteHeader(http.StatusOK)
		res.Flush()

		// Send the current snapshot first so late subscribers catch up.
		// Anything published between Subscribe and this read is already
		// buffered in ch at an older version, so remember the version we
		// wrote and drop channel snapshots at or below it.
		var lastVersion int64
		if job, err := h.transformUC.GetJob(c.Request().Context(), jobID); err == nil {
			if err := writeEvent(res, "progress", job); err != nil {
				return nil
			}
			if job.Status.Terminal() {
				return nil
			}
			lastVersion = job.Version
		}

		ticker := time.NewTicker(keepaliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.Request().Context().Done():
				return nil
			case job, ok := <-ch:
				if !ok {
					return nil
				}
				if job.Version <= lastVersion {
					continue
				}
				lastVersion = job.Version
				if err := writeEvent(res, "progress", job); err != nil {
					return nil
				}
				if job.Status.Terminal() {
					return nil
				}
			case <-ticker.C:
				if err := writeEvent(res, "ping", map[string]int64{"timestamp": time.Now().Unix()}); err != nil {
					return nil
				}
			}
		}
	}
}

func (h *transformHandlers) GetUploadURL() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.UploadURLInput{}
		if err := c.Bind(input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		url, key, err := h.transformUC.GetUploadURL(c.Request().Context(), input)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"upload_url": url, "key": key})
	}
}

func writeEvent(res *echo.Response, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
