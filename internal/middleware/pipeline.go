package middleware

import (
	"context"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
	"github.com/tjfontaine/polyglot-connector/internal/pipeline"
)

// RequestPipe inspects or mutates an outgoing request. Returning a nil
// request keeps the current one; returning a different request replaces it
// for the rest of the pipeline.
type RequestPipe func(ctx context.Context, req *domain.PendingRequest) (*domain.PendingRequest, error)

// ResponsePipe inspects or mutates an incoming response. Returning a nil
// response keeps the current one.
type ResponsePipe func(ctx context.Context, resp *domain.Response) (*domain.Response, error)

// PipeOption configures how a pipe is registered.
type PipeOption func(*pipeOptions)

type pipeOptions struct {
	highPriority bool
}

// HighPriority registers the pipe ahead of all normal-priority pipes.
func HighPriority() PipeOption {
	return func(o *pipeOptions) {
		o.highPriority = true
	}
}

func applyPipeOptions(opts []PipeOption) pipeOptions {
	var o pipeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Pipeline pairs a request pipeline with a response pipeline.
// Build it completely before executing it; it has no locking.
type Pipeline struct {
	requests  *pipeline.Pipeline[*domain.PendingRequest]
	responses *pipeline.Pipeline[*domain.Response]
}

// New creates a Pipeline with empty request and response pipelines.
func New() *Pipeline {
	return &Pipeline{
		requests:  pipeline.New[*domain.PendingRequest](),
		responses: pipeline.New[*domain.Response](),
	}
}

// AddRequestPipe registers fn on the request pipeline.
func (p *Pipeline) AddRequestPipe(fn RequestPipe, opts ...PipeOption) *Pipeline {
	if fn == nil {
		return p
	}
	o := applyPipeOptions(opts)

	p.requests.Pipe(func(ctx context.Context, req *domain.PendingRequest) (pipeline.Result[*domain.PendingRequest], error) {
		next, err := fn(ctx, req)
		if err != nil {
			return pipeline.Keep[*domain.PendingRequest](), err
		}
		if next == nil || next == req {
			return pipeline.Keep[*domain.PendingRequest](), nil
		}
		return pipeline.Replace(next), nil
	}, o.highPriority)

	return p
}

// AddResponsePipe registers fn on the response pipeline.
func (p *Pipeline) AddResponsePipe(fn ResponsePipe, opts ...PipeOption) *Pipeline {
	if fn == nil {
		return p
	}
	o := applyPipeOptions(opts)

	p.responses.Pipe(func(ctx context.Context, resp *domain.Response) (pipeline.Result[*domain.Response], error) {
		next, err := fn(ctx, resp)
		if err != nil {
			return pipeline.Keep[*domain.Response](), err
		}
		if next == nil || next == resp {
			return pipeline.Keep[*domain.Response](), nil
		}
		return pipeline.Replace(next), nil
	}, o.highPriority)

	return p
}

// ExecuteRequestPipeline runs every request pipe against req and returns the
// resulting request. A pipe error is returned unchanged along with the
// request as it stood before the failing pipe.
func (p *Pipeline) ExecuteRequestPipeline(ctx context.Context, req *domain.PendingRequest) (*domain.PendingRequest, error) {
	return p.requests.Process(ctx, req)
}

// ExecuteResponsePipeline runs every response pipe against resp and returns
// the resulting response.
func (p *Pipeline) ExecuteResponsePipeline(ctx context.Context, resp *domain.Response) (*domain.Response, error) {
	return p.responses.Process(ctx, resp)
}

// Merge appends other's request and response pipes after the receiver's own.
// Each side keeps its internal order; priorities are not re-interleaved
// across the two. other is not modified. A nil other is a no-op.
func (p *Pipeline) Merge(other *Pipeline) *Pipeline {
	if other == nil {
		return p
	}

	p.requests.SetPipes(append(p.requests.Pipes(), other.requests.Pipes()...))
	p.responses.SetPipes(append(p.responses.Pipes(), other.responses.Pipes()...))

	return p
}

// RequestPipeline exposes the underlying request pipeline.
func (p *Pipeline) RequestPipeline() *pipeline.Pipeline[*domain.PendingRequest] {
	return p.requests
}

// ResponsePipeline exposes the underlying response pipeline.
func (p *Pipeline) ResponsePipeline() *pipeline.Pipeline[*domain.Response] {
	return p.responses
}
