package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"rss-proxy-go/internal/config"
	"rss-proxy-go/internal/model"
	"rss-proxy-go/internal/service"
)

const (
	streamChunkSize         = 32 * 1024
	defaultEnvelopeMaxBytes = 10 * 1024 * 1024
)

// routePolicy decides how one route forwards headers and renders the result.
type routePolicy struct {
	headers model.HeaderPolicy
	mode    model.ResponseMode
	// passStatus relays the origin status line instead of a proxy-level 200.
	passStatus bool
}

// requestGetPolicy is fixed: GET /request.get is a transparent, allowlisted relay.
var requestGetPolicy = routePolicy{
	headers:    model.HeadersAllowlist,
	mode:       model.ResponseStream,
	passStatus: true,
}

// ProxyHandler serves the proxy routes.
type ProxyHandler struct {
	service     *service.ProxyService
	logger      *slog.Logger
	rssProxy    routePolicy
	envelopeMax int64
}

// NewProxyHandler creates a ProxyHandler. The POST /rss-proxy policy comes from
// the proxy config section.
func NewProxyHandler(svc *service.ProxyService, cfg *config.Config, logger *slog.Logger) *ProxyHandler {
	envelopeMax := cfg.Proxy.EnvelopeMaxBytes
	if envelopeMax <= 0 {
		envelopeMax = defaultEnvelopeMaxBytes
	}
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
		rssProxy: routePolicy{
			headers: model.HeaderPolicy(cfg.Proxy.HeaderPolicy),
			mode:    model.ResponseMode(cfg.Proxy.ResponseMode),
		},
		envelopeMax: envelopeMax,
	}
}

// RSSProxy handles POST /rss-proxy: parameters arrive as a JSON body and the
// caller may override method, body and headers.
func (h *ProxyHandler) RSSProxy(c echo.Context) error {
	req := c.Request()

	if !strings.Contains(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return textError(c, http.StatusBadRequest, "content-type: application/json is required")
	}

	pr, err := decodeProxyRequest(req.Body)
	if err != nil {
		return textError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := h.service.Validate(&pr); err != nil {
		return h.mapError(c, err)
	}

	header := service.RequestHeaders(h.rssProxy.headers, service.HeaderFromMap(pr.Headers))
	return h.relay(c, &pr, header, h.rssProxy)
}

// RequestGet handles GET /request.get: parameters arrive in the query string and
// only allowlisted headers cross the proxy in either direction.
func (h *ProxyHandler) RequestGet(c echo.Context) error {
	// Unknown query parameters are ignored.
	pr := model.ProxyRequest{
		Token:  c.QueryParam("token"),
		Method: http.MethodGet,
		URL:    c.QueryParam("url"),
	}

	if err := h.service.Validate(&pr); err != nil {
		return h.mapError(c, err)
	}

	header := service.RequestHeaders(requestGetPolicy.headers, c.Request().Header)
	return h.relay(c, &pr, header, requestGetPolicy)
}

func (h *ProxyHandler) relay(c echo.Context, pr *model.ProxyRequest, header http.Header, policy routePolicy) error {
	result := h.service.Forward(c.Request().Context(), pr, header)
	defer func() { _ = result.Close() }()

	if policy.mode == model.ResponseJSON {
		return h.writeEnvelope(c, result, policy)
	}
	return h.writeStream(c, result, policy)
}

// writeStream relays the origin body as it arrives. Origin failures become a
// 200 with the ERROR status header and the error text as body.
func (h *ProxyHandler) writeStream(c echo.Context, result *model.OriginResult, policy routePolicy) error {
	res := c.Response()

	if result.Failed() {
		res.Header().Set(model.StatusHeader, model.StatusError)
		return c.String(http.StatusOK, result.Err.Error())
	}

	resp := result.Response
	// Origin values replace headers the middleware chain already set.
	// Content-Length is left to net/http: a HEAD or 304 origin reply declares
	// a length it never sends.
	for key, vals := range service.ResponseHeaders(policy.headers, resp.Header) {
		if key == echo.HeaderContentLength {
			continue
		}
		res.Header()[key] = vals
	}
	res.Header().Set(model.StatusHeader, strconv.Itoa(resp.StatusCode))

	status := http.StatusOK
	if policy.passStatus {
		status = resp.StatusCode
	}
	res.WriteHeader(status)

	// The status line is already sent, so a mid-stream failure can only
	// truncate the body; it is logged.
	if err := streamBody(res, resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", service.SanitizeError(err),
			"path", c.Request().URL.Path,
		)
	}
	return nil
}

// writeEnvelope buffers the origin body and renders the whole result as JSON.
func (h *ProxyHandler) writeEnvelope(c echo.Context, result *model.OriginResult, policy routePolicy) error {
	env := model.Envelope{URL: result.URL}

	if result.Failed() {
		env.Error = result.Err.Error()
		c.Response().Header().Set(model.StatusHeader, model.StatusError)
		return c.JSON(http.StatusOK, env)
	}

	resp := result.Response
	env.Status = resp.StatusCode
	env.StatusText = statusText(resp)
	env.Headers = flattenHeaders(service.ResponseHeaders(policy.headers, resp.Header))

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.envelopeMax+1))
	switch {
	case err != nil:
		env.Error = fmt.Sprintf("read origin body: %v", err)
	case int64(len(body)) > h.envelopeMax:
		env.Error = fmt.Sprintf("origin body exceeds %d bytes", h.envelopeMax)
	default:
		s := string(body)
		env.Body = &s
	}

	c.Response().Header().Set(model.StatusHeader, strconv.Itoa(resp.StatusCode))
	return c.JSON(http.StatusOK, env)
}

// decodeProxyRequest reads exactly one JSON object from r. Trailing data after
// the object is an error.
func decodeProxyRequest(r io.Reader) (model.ProxyRequest, error) {
	var pr model.ProxyRequest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&pr); err != nil {
		return model.ProxyRequest{}, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return model.ProxyRequest{}, errors.New("trailing data after request object")
	}
	return pr, nil
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	h.logger.Warn("request rejected",
		"err", err,
		"path", c.Request().URL.Path,
	)

	switch {
	case errors.Is(err, service.ErrInvalidToken):
		return textError(c, http.StatusForbidden, "invalid token")
	case errors.Is(err, service.ErrMissingURL):
		return textError(c, http.StatusBadRequest, "url is required")
	default:
		return textError(c, http.StatusBadRequest, err.Error())
	}
}

func textError(c echo.Context, status int, msg string) error {
	return c.String(status, msg)
}

// streamBody copies src to the response, flushing after every chunk so the
// caller sees bytes as the origin sends them.
func streamBody(res *echo.Response, src io.Reader) error {
	buf := make([]byte, streamChunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := res.Write(buf[:n]); werr != nil {
				return werr
			}
			res.Flush()
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// statusText returns the reason phrase, e.g. "Created" for "201 Created".
func statusText(resp *model.ProxyResponse) string {
	code := strconv.Itoa(resp.StatusCode)
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// flattenHeaders renders headers as lower-case names with comma-joined values.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, vals := range h {
		out[strings.ToLower(key)] = strings.Join(vals, ", ")
	}
	return out
}
