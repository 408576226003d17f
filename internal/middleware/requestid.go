package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
)

// RequestIDHeader carries the request ID to the remote API.
const RequestIDHeader = "X-Request-ID"

// RequestIDPipe assigns a request ID. An existing PendingRequest.ID or
// X-Request-ID header is kept; otherwise a new UUID is generated.
func RequestIDPipe() RequestPipe {
	return func(ctx context.Context, req *domain.PendingRequest) (*domain.PendingRequest, error) {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		if req.ID == "" {
			req.ID = req.Headers.Get(RequestIDHeader)
		}
		if req.ID == "" {
			req.ID = uuid.New().String()
		}
		if req.Headers.Get(RequestIDHeader) == "" {
			req.Headers.Set(RequestIDHeader, req.ID)
		}

		return nil, nil
	}
}
