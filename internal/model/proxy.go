// Package model defines shared types for the proxy.
package model

import (
	"encoding/json"
	"io"
	"net/http"
)

// StatusHeader carries the origin outcome independently of the status line:
// the numeric origin status, or StatusError when the origin could not be reached.
const (
	StatusHeader = "X-Rss-Proxy-Status"
	StatusError  = "ERROR"
)

// HeaderPolicy selects which headers cross the proxy in each direction.
type HeaderPolicy string

const (
	// HeadersUnrestricted forwards caller headers verbatim and relays every
	// origin header except hop-by-hop ones.
	HeadersUnrestricted HeaderPolicy = "unrestricted"
	// HeadersAllowlist forwards and relays only fixed header allowlists.
	HeadersAllowlist HeaderPolicy = "allowlist"
)

// ResponseMode selects how the origin result is rendered to the caller.
type ResponseMode string

const (
	ResponseStream ResponseMode = "stream"
	ResponseJSON   ResponseMode = "json"
)

// ProxyRequest holds the caller's parameters, decoded from a JSON body
// (POST /rss-proxy) or the query string (GET /request.get).
type ProxyRequest struct {
	Token   string            `json:"token"`
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Body    *string           `json:"body"`
	Headers map[string]string `json:"headers"`
}

// UnmarshalJSON decodes a JSON object leniently: a field of the wrong type is
// treated as absent, so a numeric token fails authorization instead of
// decoding. Only input that is not a JSON object is an error.
func (pr *ProxyRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*pr = ProxyRequest{
		Token:  stringField(raw["token"]),
		Method: stringField(raw["method"]),
		URL:    stringField(raw["url"]),
	}

	if v, ok := raw["body"]; ok && string(v) != "null" {
		var body string
		if json.Unmarshal(v, &body) == nil {
			pr.Body = &body
		}
	}

	var headers map[string]json.RawMessage
	if json.Unmarshal(raw["headers"], &headers) == nil && len(headers) > 0 {
		pr.Headers = make(map[string]string, len(headers))
		for k, v := range headers {
			var s string
			if json.Unmarshal(v, &s) == nil {
				pr.Headers[k] = s
			}
		}
	}
	return nil
}

func stringField(v json.RawMessage) string {
	var s string
	if json.Unmarshal(v, &s) != nil {
		return ""
	}
	return s
}

// ProxyResponse is the origin response to be relayed back.
type ProxyResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       io.ReadCloser
}

// OriginResult is the outcome of one origin call. Exactly one of Response
// and Err is set.
type OriginResult struct {
	URL      string
	Response *ProxyResponse
	Err      error
}

// Failed reports whether the origin could not be reached.
func (r *OriginResult) Failed() bool {
	return r.Err != nil
}

// Close releases the origin body, if any.
func (r *OriginResult) Close() error {
	if r.Response == nil || r.Response.Body == nil {
		return nil
	}
	return r.Response.Body.Close()
}

// Envelope is the structured JSON rendition of an OriginResult.
// Status fields are omitted when the origin never answered.
type Envelope struct {
	URL        string            `json:"url"`
	Status     int               `json:"status,omitempty"`
	StatusText string            `json:"statusText,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       *string           `json:"body,omitempty"`
	Error      string            `json:"error,omitempty"`
}
