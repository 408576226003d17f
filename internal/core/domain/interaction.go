package domain

import (
	"time"
)

// InteractionStatus represents the outcome of a recorded exchange.
type InteractionStatus string

const (
	// InteractionStatusCompleted means a response was received (any status code).
	InteractionStatusCompleted InteractionStatus = "completed"
	// InteractionStatusFailed means the response carried a 4xx/5xx status.
	InteractionStatusFailed InteractionStatus = "failed"
)

// Interaction is a persisted record of one request/response exchange.
type Interaction struct {
	// ID is the PendingRequest ID.
	ID        string `json:"id"`
	Connector string `json:"connector"`
	Name      string `json:"name,omitempty"`

	Method string `json:"method"`
	URL    string `json:"url"`

	RequestHeaders  map[string]string `json:"request_headers,omitempty"`
	RequestBody     []byte            `json:"request_body,omitempty"`
	StatusCode      int               `json:"status_code"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
	ResponseBody    []byte            `json:"response_body,omitempty"`

	Status   InteractionStatus `json:"status"`
	Duration time.Duration     `json:"duration_ns"`

	Metadata map[string]string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// sensitiveHeaders are redacted before an interaction is persisted.
var sensitiveHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
	"Cookie":              true,
	"Set-Cookie":          true,
	"X-Api-Key":           true,
}

// NewInteraction builds an Interaction from a completed exchange.
// Credentials in headers are redacted.
func NewInteraction(resp *Response) *Interaction {
	req := resp.Request
	if req == nil {
		req = &PendingRequest{}
	}

	status := InteractionStatusCompleted
	if resp.Failed() {
		status = InteractionStatusFailed
	}

	return &Interaction{
		ID:              req.ID,
		Connector:       req.Connector,
		Name:            req.Name,
		Method:          req.Method,
		URL:             req.URL(),
		RequestHeaders:  flattenHeaders(req.Headers),
		RequestBody:     req.Body,
		StatusCode:      resp.StatusCode,
		ResponseHeaders: flattenHeaders(resp.Headers),
		ResponseBody:    resp.Body,
		Status:          status,
		Duration:        resp.Duration,
		Metadata:        req.Metadata,
		CreatedAt:       req.CreatedAt,
	}
}

func flattenHeaders(h map[string][]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) == 0 {
			continue
		}
		if sensitiveHeaders[k] {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v[0]
	}
	return out
}
