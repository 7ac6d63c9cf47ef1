package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"rss-proxy-go/internal/model"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/request.get", func(c echo.Context) error {
		c.Response().Header().Set(model.StatusHeader, "304")
		return c.String(http.StatusNotModified, "")
	})

	req := httptest.NewRequest(http.MethodGet, "/request.get?token=secret-token&url=http://example.com", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, "origin_status=304") {
		t.Errorf("log line missing origin_status: %q", out)
	}
	if strings.Contains(out, "secret-token") {
		t.Errorf("log line leaks the query string: %q", out)
	}
}

func TestRequestLogger_NoOriginStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if strings.Contains(buf.String(), "origin_status") {
		t.Errorf("unexpected origin_status in %q", buf.String())
	}
}
