package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/tavern/internal/handlers"
	"github.com/nfrund/tavern/internal/middleware"
)

// setupErrorHandling renders every unhandled error as a handlers.ErrorResponse.
// Errors that are not echo HTTP errors are logged with a stack trace.
func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := handlers.Classify(err)
		if status >= http.StatusInternalServerError {
			if _, isHTTP := err.(*echo.HTTPError); !isHTTP {
				middleware.FromContext(c.Request().Context()).Error("Internal Server Error (Unhandled)",
					slog.String("error", err.Error()),
					slog.String("path", c.Request().URL.Path),
					slog.String("stack_trace", string(debug.Stack())),
				)
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			slog.Error("Failed to write error response", "error", err)
		}
	}
}
