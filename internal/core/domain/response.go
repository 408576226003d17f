package domain

import (
	"net/http"
	"time"
)

// Response is the result of sending a PendingRequest. Response pipes may
// mutate it in place or replace it entirely.
type Response struct {
	// Request is the request as it stood after the request pipeline ran.
	Request *PendingRequest `json:"-"`

	StatusCode int         `json:"status_code"`
	Status     string      `json:"status,omitempty"`
	Headers    http.Header `json:"headers,omitempty"`
	Body       []byte      `json:"body,omitempty"`

	// Duration is the time spent in the transport.
	Duration   time.Duration `json:"duration_ns"`
	ReceivedAt time.Time     `json:"received_at"`
}

// Successful reports whether the status code is 2xx.
func (r *Response) Successful() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Failed reports whether the status code is 4xx or 5xx.
func (r *Response) Failed() bool {
	return r.StatusCode >= 400
}

// Header returns the first value for key.
func (r *Response) Header(key string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// StatusClass buckets the status code as "2xx", "4xx", ... for metrics labels.
func (r *Response) StatusClass() string {
	switch {
	case r.StatusCode >= 500:
		return "5xx"
	case r.StatusCode >= 400:
		return "4xx"
	case r.StatusCode >= 300:
		return "3xx"
	case r.StatusCode >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
