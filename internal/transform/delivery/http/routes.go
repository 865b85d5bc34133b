package http

import (
	"github.com/labstack/echo/v4"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
)

func MapTransformRoutes(transformGroup *echo.Group, h transform.Handlers) {
	transformGroup.POST("", h.SubmitTransform())
	transformGroup.POST("/upload-url", h.GetUploadURL())
	transformGroup.GET("/:job_id", h.GetJobStatus())
	transformGroup.GET("/:job_id/events", h.StreamProgress())
}
