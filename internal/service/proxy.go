// Package service implements authentication, header policy and origin forwarding.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"rss-proxy-go/internal/client"
	"rss-proxy-go/internal/config"
	"rss-proxy-go/internal/model"
)

var (
	// ErrInvalidToken is returned when the caller's token is blank or wrong.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingURL is returned when the caller did not name a target URL.
	ErrMissingURL = errors.New("url is required")
)

// forwardableRequestHeaders are the request headers copied to the origin
// under the allowlist policy.
var forwardableRequestHeaders = []string{
	"User-Agent",
	"Accept",
	"Accept-Encoding",
	"Accept-Language",
	"Etag",
	"If-Modified-Since",
	"Cache-Control",
	"Pragma",
}

// forwardableResponseHeaders are the origin headers relayed to the caller
// under the allowlist policy.
var forwardableResponseHeaders = []string{
	"Content-Encoding",
	"Content-Type",
	"Cache-Control",
	"Etag",
	"Last-Modified",
	"Expires",
	"Age",
	"Pragma",
	"Server",
	"Date",
}

// hopByHopHeaders never cross the proxy, whatever the policy.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Proxy-Connection":    true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// ProxyService checks callers and forwards their requests to origin URLs.
// It holds no per-request state and is safe for concurrent use.
type ProxyService struct {
	client *client.OriginClient
	token  []byte
	logger *slog.Logger
}

// NewProxyService creates a ProxyService bound to the configured shared secret.
func NewProxyService(c *client.OriginClient, cfg *config.Config, logger *slog.Logger) *ProxyService {
	return &ProxyService{
		client: c,
		token:  []byte(cfg.Proxy.Token),
		logger: logger.With("component", "proxy_service"),
	}
}

// Authorize returns ErrInvalidToken unless token is non-blank and equal to
// the configured secret.
func (s *ProxyService) Authorize(token string) error {
	if token == "" || len(s.token) == 0 {
		return ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(token), s.token) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// Validate authorizes the request and checks that it names a target URL.
func (s *ProxyService) Validate(pr *model.ProxyRequest) error {
	if err := s.Authorize(pr.Token); err != nil {
		return err
	}
	if pr.URL == "" {
		return ErrMissingURL
	}
	return nil
}

// Forward performs the single origin call for pr, sending header as the
// request headers. Transport failures are folded into the result rather than
// returned; a non-2xx origin status is a successful result.
// The caller must Close the result.
func (s *ProxyService) Forward(ctx context.Context, pr *model.ProxyRequest, header http.Header) *model.OriginResult {
	method := resolveMethod(pr.Method)

	var body io.Reader
	if pr.Body != nil && method != http.MethodGet && method != http.MethodHead {
		body = strings.NewReader(*pr.Body)
	}

	s.logger.Debug("forwarding request", "method", method)

	resp, err := s.client.DoStream(ctx, method, pr.URL, header, body)
	if err != nil {
		s.logger.Warn("origin unreachable", "method", method, "err", SanitizeError(err))
		return &model.OriginResult{URL: pr.URL, Err: err}
	}
	return &model.OriginResult{URL: pr.URL, Response: resp}
}

// RequestHeaders builds the outbound header set from src under policy.
// Unrestricted copies src verbatim; allowlist copies only non-blank
// allowlisted headers.
func RequestHeaders(policy model.HeaderPolicy, src http.Header) http.Header {
	dst := make(http.Header)
	if policy == model.HeadersAllowlist {
		for _, key := range forwardableRequestHeaders {
			if v := src.Get(key); v != "" {
				dst.Set(key, v)
			}
		}
		return dst
	}
	for key, vals := range src {
		dst[key] = append([]string(nil), vals...)
	}
	return dst
}

// HeaderFromMap converts a caller-supplied header mapping into an http.Header.
func HeaderFromMap(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

// ResponseHeaders selects the origin headers relayed to the caller under policy.
// Hop-by-hop headers are always dropped.
func ResponseHeaders(policy model.HeaderPolicy, src http.Header) http.Header {
	dst := make(http.Header)
	if policy == model.HeadersAllowlist {
		for _, key := range forwardableResponseHeaders {
			if v := src.Get(key); v != "" {
				dst.Set(key, v)
			}
		}
		return dst
	}
	for key, vals := range src {
		if hopByHopHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		dst[key] = append([]string(nil), vals...)
	}
	return dst
}

func resolveMethod(method string) string {
	if method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(method)
}
