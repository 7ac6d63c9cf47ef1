package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"rss-proxy-go/internal/config"
	"rss-proxy-go/internal/metrics"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<rss/>"))
	}))
	defer origin.Close()

	e := newTestServer(testConfig())

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"GET /healthz", http.MethodGet, "/healthz", "", http.StatusOK},
		{"GET /proxy/status", http.MethodGet, "/proxy/status", "", http.StatusOK},
		{"POST /rss-proxy", http.MethodPost, "/rss-proxy", `{"token":"` + testToken + `","url":"` + origin.URL + `"}`, http.StatusOK},
		{"GET /request.get", http.MethodGet, "/request.get?token=" + testToken + "&url=" + origin.URL, "", http.StatusOK},
		{"GET /rss-proxy is 404", http.MethodGet, "/rss-proxy", "", http.StatusNotFound},
		{"PUT /rss-proxy is 404", http.MethodPut, "/rss-proxy", "", http.StatusNotFound},
		{"POST /request.get is 404", http.MethodPost, "/request.get", "", http.StatusNotFound},
		{"DELETE /request.get is 404", http.MethodDelete, "/request.get", "", http.StatusNotFound},
		{"GET /unknown is 404", http.MethodGet, "/unknown", "", http.StatusNotFound},
		{"GET / is 404", http.MethodGet, "/", "", http.StatusNotFound},
		{"GET /metrics disabled is 404", http.MethodGet, "/metrics", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = http.NoBody
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.body != "" {
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusNotFound {
				if rec.Body.String() != notFoundMessage {
					t.Errorf("body = %q, want %q", rec.Body.String(), notFoundMessage)
				}
				if allow := rec.Header().Get(echo.HeaderAllow); allow != "" {
					t.Errorf("Allow = %q, want none", allow)
				}
			}
		})
	}
}

func TestRegisterMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics = config.MetricsConfig{Enabled: true, Path: "/metrics"}
	m := metrics.New()
	m.RequestsTotal.WithLabelValues("GET", "200", "/request.get").Inc()

	e := echo.New()
	RegisterMetrics(e, cfg, m)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "rss_proxy_http_requests_total") {
		t.Error("expected rss_proxy_http_requests_total in metrics output")
	}
}
