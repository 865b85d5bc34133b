package transform

import "github.com/labstack/echo/v4"

type Handlers interface {
	SubmitTransform() echo.HandlerFunc
	GetJobStatus() echo.HandlerFunc
	StreamProgress() echo.HandlerFunc
	GetUploadURL() echo.HandlerFunc
}
