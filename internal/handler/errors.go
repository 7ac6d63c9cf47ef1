package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

const notFoundMessage = "404 Not Found"

// ErrorHandler renders framework errors as plain text. Unknown paths and
// known paths with the wrong method both answer 404.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			msg = http.StatusText(code)
			if m, ok := he.Message.(string); ok && m != "" {
				msg = m
			}
		}

		if code == http.StatusNotFound || code == http.StatusMethodNotAllowed {
			c.Response().Header().Del(echo.HeaderAllow)
			code, msg = http.StatusNotFound, notFoundMessage
		}
		if code >= http.StatusInternalServerError {
			logger.Error("unhandled error", "err", err, "path", c.Request().URL.Path)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.String(code, msg)
		}
		if err != nil {
			logger.Error("writing error response", "err", err)
		}
	}
}
