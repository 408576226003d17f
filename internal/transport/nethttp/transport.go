// Package nethttp sends pending requests with net/http, instrumented with
// OpenTelemetry.
package nethttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
	"github.com/tjfontaine/polyglot-connector/internal/pkg/safehttp"
)

// Transport implements ports.Transport over an *http.Client.
type Transport struct {
	client *http.Client
}

var _ ports.Transport = (*Transport)(nil)

type options struct {
	roundTripper  http.RoundTripper
	blockPrivate  bool
	timeout       time.Duration
	disableTracer bool
}

// Option configures a Transport.
type Option func(*options)

// WithRoundTripper sends through rt instead of a clone of http.DefaultTransport.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) {
		o.roundTripper = rt
	}
}

// WithBlockPrivateNetworks refuses connections to private, loopback and
// link-local addresses. Ignored when WithRoundTripper is set.
func WithBlockPrivateNetworks(block bool) Option {
	return func(o *options) {
		o.blockPrivate = block
	}
}

// WithTimeout sets the client-wide timeout. Per-request timeouts on
// PendingRequest take effect independently.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithoutTracing skips the otelhttp wrapper.
func WithoutTracing() Option {
	return func(o *options) {
		o.disableTracer = true
	}
}

// New creates a Transport.
func New(opts ...Option) *Transport {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	rt := o.roundTripper
	if rt == nil {
		if o.blockPrivate {
			rt = safehttp.NewTransport()
		} else {
			rt = http.DefaultTransport.(*http.Transport).Clone()
		}
	}
	if !o.disableTracer {
		rt = otelhttp.NewTransport(rt)
	}

	return &Transport{
		client: &http.Client{
			Transport: rt,
			Timeout:   o.timeout,
		},
	}
}

// Send performs one HTTP exchange. Error statuses are returned as responses;
// only failures to get a response at all are errors.
func (t *Transport) Send(ctx context.Context, req *domain.PendingRequest) (*domain.Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header = req.Headers.Clone()
	if httpReq.Header == nil {
		httpReq.Header = make(http.Header)
	}
	if req.ContentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	start := time.Now()
	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &domain.Response{
		Request:    req,
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header,
		Body:       data,
		Duration:   time.Since(start),
		ReceivedAt: time.Now(),
	}, nil
}
