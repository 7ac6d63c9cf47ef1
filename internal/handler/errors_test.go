package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestErrorHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handle := ErrorHandler(logger)

	tests := []struct {
		name       string
		method     string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"not found", http.MethodGet, echo.ErrNotFound, http.StatusNotFound, notFoundMessage},
		{"method not allowed folds to 404", http.MethodGet, echo.ErrMethodNotAllowed, http.StatusNotFound, notFoundMessage},
		{"body limit", http.MethodPost, echo.NewHTTPError(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge, "Request Entity Too Large"},
		{"custom message", http.MethodPost, echo.NewHTTPError(http.StatusBadRequest, "bad things"), http.StatusBadRequest, "bad things"},
		{"plain error", http.MethodGet, errors.New("boom"), http.StatusInternalServerError, "Internal Server Error"},
		{"head has no body", http.MethodHead, echo.ErrNotFound, http.StatusNotFound, ""},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/x", http.NoBody)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handle(tt.err, c)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
