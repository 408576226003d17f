// Package fasthttp sends pending requests with valyala/fasthttp.
package fasthttp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
)

// DefaultTimeout applies when neither the context nor the request sets one.
const DefaultTimeout = 30 * time.Second

// Transport implements ports.Transport over a *fasthttp.Client.
// fasthttp does not observe context cancellation, only deadlines.
type Transport struct {
	client  *fasthttp.Client
	timeout time.Duration
}

var _ ports.Transport = (*Transport)(nil)

// Option configures a Transport.
type Option func(*Transport)

// WithClient sends through c.
func WithClient(c *fasthttp.Client) Option {
	return func(t *Transport) {
		t.client = c
	}
}

// WithTimeout replaces DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.timeout = d
	}
}

// New creates a Transport.
func New(opts ...Option) *Transport {
	t := &Transport{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		t.client = &fasthttp.Client{
			ReadTimeout:  t.timeout,
			WriteTimeout: t.timeout,
		}
	}
	return t
}

func (t *Transport) deadline(ctx context.Context, req *domain.PendingRequest) time.Time {
	timeout := t.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return deadline
}

// Send performs one HTTP exchange.
func (t *Transport) Send(ctx context.Context, req *domain.PendingRequest) (*domain.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fReq := fasthttp.AcquireRequest()
	fResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(fReq)
	defer fasthttp.ReleaseResponse(fResp)

	fReq.SetRequestURI(req.URL())
	fReq.Header.SetMethod(req.Method)
	for key, values := range req.Headers {
		for _, v := range values {
			fReq.Header.Add(key, v)
		}
	}
	if len(req.Body) > 0 {
		fReq.SetBody(req.Body)
	}
	if req.ContentType != "" && len(fReq.Header.ContentType()) == 0 {
		fReq.Header.SetContentType(req.ContentType)
	}

	start := time.Now()
	if err := t.client.DoDeadline(fReq, fResp, t.deadline(ctx, req)); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	duration := time.Since(start)

	headers := make(http.Header)
	fResp.Header.VisitAll(func(key, value []byte) {
		headers.Add(string(key), string(value))
	})

	code := fResp.StatusCode()
	return &domain.Response{
		Request:    req,
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, fasthttp.StatusMessage(code)),
		Headers:    headers,
		Body:       append([]byte(nil), fResp.Body()...),
		Duration:   duration,
		ReceivedAt: time.Now(),
	}, nil
}
