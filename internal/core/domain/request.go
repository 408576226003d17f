// Package domain defines the subjects that flow through connector pipelines.
package domain

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PendingRequest is an outgoing request that has been assembled by a
// connector but not yet handed to a transport. Request pipes may mutate it in
// place or replace it entirely.
type PendingRequest struct {
	// ID correlates the request with its response and recorded interaction.
	ID string `json:"id"`

	// Connector is the name of the connector that built the request.
	Connector string `json:"connector"`

	// Name identifies the request descriptor (e.g. "repos.get").
	Name string `json:"name,omitempty"`

	Method   string      `json:"method"`
	BaseURL  string      `json:"base_url"`
	Endpoint string      `json:"endpoint"`
	Headers  http.Header `json:"headers,omitempty"`
	Query    url.Values  `json:"query,omitempty"`

	// Body is sent verbatim; encoding is the request descriptor's concern.
	Body        []byte `json:"body,omitempty"`
	ContentType string `json:"content_type,omitempty"`

	// Timeout bounds the transport call. Zero means the transport default.
	Timeout time.Duration `json:"timeout,omitempty"`

	// Metadata carries free-form values between pipes.
	Metadata map[string]string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewPendingRequest returns a request with initialized header, query and
// metadata maps.
func NewPendingRequest(connector, method, baseURL, endpoint string) *PendingRequest {
	return &PendingRequest{
		Connector: connector,
		Method:    strings.ToUpper(method),
		BaseURL:   baseURL,
		Endpoint:  endpoint,
		Headers:   make(http.Header),
		Query:     make(url.Values),
		Metadata:  make(map[string]string),
		CreatedAt: time.Now(),
	}
}

// URL joins the base URL and endpoint and appends the encoded query.
func (r *PendingRequest) URL() string {
	u := JoinURL(r.BaseURL, r.Endpoint)
	if len(r.Query) == 0 {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + r.Query.Encode()
}

// SetMetadata stores a metadata value, allocating the map if needed.
func (r *PendingRequest) SetMetadata(key, value string) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}
	r.Metadata[key] = value
}

// Clone returns a deep copy of the request.
func (r *PendingRequest) Clone() *PendingRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.Headers = r.Headers.Clone()
	if c.Headers == nil {
		c.Headers = make(http.Header)
	}
	c.Query = make(url.Values, len(r.Query))
	for k, v := range r.Query {
		c.Query[k] = append([]string(nil), v...)
	}
	c.Metadata = make(map[string]string, len(r.Metadata))
	for k, v := range r.Metadata {
		c.Metadata[k] = v
	}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return &c
}

// JoinURL concatenates a base URL and an endpoint with exactly one slash
// between them. Absolute endpoints are returned unchanged.
func JoinURL(base, endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if endpoint == "" {
		return base
	}
	if base == "" {
		return endpoint
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
}
