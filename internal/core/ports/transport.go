// Package ports defines the interfaces between the pipeline core and its
// collaborators: transports, request descriptors, senders and stores.
package ports

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
)

// Transport sends a fully prepared request and returns the raw response.
// Implementations: net/http (default), fasthttp.
// A non-nil error means no response was received; HTTP error statuses are
// returned as responses, not errors.
type Transport interface {
	Send(ctx context.Context, req *domain.PendingRequest) (*domain.Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *domain.PendingRequest) (*domain.Response, error)

// Send calls f(ctx, req).
func (f TransportFunc) Send(ctx context.Context, req *domain.PendingRequest) (*domain.Response, error) {
	return f(ctx, req)
}

// Request describes an API call a connector can send.
// Optional behaviour is discovered through HeaderProvider, QueryProvider,
// BodyProvider and Named.
type Request interface {
	Method() string
	Endpoint() string
}

// HeaderProvider contributes request-level headers that override connector defaults.
type HeaderProvider interface {
	Headers() http.Header
}

// QueryProvider contributes query parameters.
type QueryProvider interface {
	Query() url.Values
}

// BodyProvider contributes an already encoded body and its content type.
type BodyProvider interface {
	Body() ([]byte, string, error)
}

// Named gives a request a stable name for logs and recordings.
type Named interface {
	Name() string
}

// Sender sends request descriptors through a connector's pipelines.
type Sender interface {
	Name() string
	Send(ctx context.Context, req Request) (*domain.Response, error)
}
