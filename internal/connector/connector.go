// Package connector sends request descriptors to a remote API through the
// connector's request and response pipelines.
package connector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
	"github.com/tjfontaine/polyglot-connector/internal/middleware"
	"github.com/tjfontaine/polyglot-connector/internal/telemetry"
	"github.com/tjfontaine/polyglot-connector/internal/transport/nethttp"
)

// MiddlewareProvider lets a request contribute its own pipes. They run after
// the connector's pipes.
type MiddlewareProvider interface {
	Middleware() *middleware.Pipeline
}

// Connector is a named remote API with default headers, a transport and a
// connector-level middleware pipeline.
type Connector struct {
	name      string
	baseURL   string
	headers   http.Header
	timeout   time.Duration
	transport ports.Transport
	logger    *slog.Logger
	tracer    trace.Tracer
	mw        *middleware.Pipeline
}

var _ ports.Sender = (*Connector)(nil)

// Option configures a Connector.
type Option func(*Connector)

// WithTransport replaces the default net/http transport.
func WithTransport(t ports.Transport) Option {
	return func(c *Connector) {
		c.transport = t
	}
}

// WithHeaders adds default headers sent with every request.
func WithHeaders(h http.Header) Option {
	return func(c *Connector) {
		for k, v := range h {
			c.headers[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
		}
	}
}

// WithHeader sets one default header.
func WithHeader(key, value string) Option {
	return func(c *Connector) {
		c.headers.Set(key, value)
	}
}

// WithTimeout bounds each transport call.
func WithTimeout(d time.Duration) Option {
	return func(c *Connector) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connector) {
		c.logger = l
	}
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Connector) {
		c.tracer = t
	}
}

// WithMiddleware merges mw into the connector-level pipeline.
func WithMiddleware(mw *middleware.Pipeline) Option {
	return func(c *Connector) {
		c.mw.Merge(mw)
	}
}

// New creates a connector for baseURL.
func New(name, baseURL string, opts ...Option) (*Connector, error) {
	if name == "" {
		return nil, fmt.Errorf("connector name cannot be empty")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("connector %s: base URL cannot be empty", name)
	}

	c := &Connector{
		name:    name,
		baseURL: baseURL,
		headers: make(http.Header),
		mw:      middleware.New(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport = nethttp.New()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = telemetry.Tracer()
	}

	return c, nil
}

// Name returns the connector name.
func (c *Connector) Name() string {
	return c.name
}

// BaseURL returns the base URL endpoints are resolved against.
func (c *Connector) BaseURL() string {
	return c.baseURL
}

// Middleware returns the connector-level pipeline. Register pipes on it
// before the first Send.
func (c *Connector) Middleware() *middleware.Pipeline {
	return c.mw
}

// Send builds a PendingRequest from req, runs the request pipeline, sends the
// result and runs the response pipeline over the response.
//
// The effective pipeline is a fresh Pipeline merged with the connector's
// pipes and then the request's own, so connector pipes always run first.
func (c *Connector) Send(ctx context.Context, req ports.Request) (*domain.Response, error) {
	pending, err := c.prepare(req)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "connector.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("connector.name", c.name),
			attribute.String("connector.request", pending.Name),
			attribute.String("http.request.method", pending.Method),
		),
	)
	defer span.End()

	effective := middleware.New().Merge(c.mw)
	if mp, ok := req.(MiddlewareProvider); ok {
		effective.Merge(mp.Middleware())
	}

	pending, err = effective.ExecuteRequestPipeline(ctx, pending)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request pipeline failed")
		return nil, fmt.Errorf("%s: request pipeline: %w", c.name, err)
	}
	span.SetAttributes(
		attribute.String("url.full", pending.URL()),
		attribute.String("request.id", pending.ID),
	)

	c.logger.Debug("sending request",
		slog.String("connector", c.name),
		slog.String("request_id", pending.ID),
		slog.String("method", pending.Method),
		slog.String("url", pending.URL()))

	resp, err := c.transport.Send(ctx, pending)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failed")
		return nil, fmt.Errorf("%s: %s %s: %w", c.name, pending.Method, pending.URL(), err)
	}
	if resp.Request == nil {
		resp.Request = pending
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	resp, err = effective.ExecuteResponsePipeline(ctx, resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "response pipeline failed")
		return resp, fmt.Errorf("%s: response pipeline: %w", c.name, err)
	}

	if resp.Failed() {
		span.SetStatus(codes.Error, resp.Status)
	}

	return resp, nil
}

func (c *Connector) prepare(req ports.Request) (*domain.PendingRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("%s: nil request", c.name)
	}

	pending := domain.NewPendingRequest(c.name, req.Method(), c.baseURL, req.Endpoint())
	pending.Headers = c.headers.Clone()
	pending.Timeout = c.timeout

	if n, ok := req.(ports.Named); ok {
		pending.Name = n.Name()
	}

	if hp, ok := req.(ports.HeaderProvider); ok {
		for k, v := range hp.Headers() {
			pending.Headers[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
		}
	}

	if qp, ok := req.(ports.QueryProvider); ok {
		for k, v := range qp.Query() {
			pending.Query[k] = append([]string(nil), v...)
		}
	}

	if bp, ok := req.(ports.BodyProvider); ok {
		body, contentType, err := bp.Body()
		if err != nil {
			return nil, fmt.Errorf("%s: build body: %w", c.name, err)
		}
		pending.Body = body
		pending.ContentType = contentType
	}

	return pending, nil
}
