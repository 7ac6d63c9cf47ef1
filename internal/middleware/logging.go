// Package middleware provides Echo middleware for logging, security headers and metrics.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"rss-proxy-go/internal/model"
)

// RequestLogger returns an Echo middleware that logs each request with slog.
// Only the path is logged: the query string of /request.get carries the token.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"remote_ip", c.RealIP(),
				"bytes_out", res.Size,
			}
			if origin := res.Header().Get(model.StatusHeader); origin != "" {
				attrs = append(attrs, "origin_status", origin)
			}
			logger.Info("request", attrs...)

			return err
		}
	}
}
