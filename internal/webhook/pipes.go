package webhook

import (
	"context"
	"fmt"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
	"github.com/tjfontaine/polyglot-connector/internal/middleware"
	"github.com/tjfontaine/polyglot-connector/internal/pipeline"
)

func metadata(req *domain.PendingRequest) map[string]any {
	if req == nil {
		return map[string]any{}
	}
	return map[string]any{
		"connector":  req.Connector,
		"request_id": req.ID,
		"request":    req.Name,
	}
}

// RequestPipe adapts a request-phase stage to a request pipe. A deny becomes
// a *pipeline.DeniedError; a mutate replaces the request.
func RequestPipe(stage ports.Stage) middleware.RequestPipe {
	return func(ctx context.Context, req *domain.PendingRequest) (*domain.PendingRequest, error) {
		out, err := stage.Process(ctx, &ports.StageInput{
			Phase:    ports.PhaseRequest,
			Request:  req,
			Metadata: metadata(req),
		})
		if err != nil {
			return nil, err
		}

		switch out.Action {
		case ports.ActionDeny:
			return nil, &pipeline.DeniedError{StageName: stage.Name(), Reason: out.DenyReason}
		case ports.ActionMutate:
			if out.Request == nil {
				return nil, fmt.Errorf("webhook stage %s: mutate without request", stage.Name())
			}
			return out.Request, nil
		default:
			return nil, nil
		}
	}
}

// ResponsePipe adapts a response-phase stage to a response pipe.
func ResponsePipe(stage ports.Stage) middleware.ResponsePipe {
	return func(ctx context.Context, resp *domain.Response) (*domain.Response, error) {
		out, err := stage.Process(ctx, &ports.StageInput{
			Phase:    ports.PhaseResponse,
			Request:  resp.Request,
			Response: resp,
			Metadata: metadata(resp.Request),
		})
		if err != nil {
			return nil, err
		}

		switch out.Action {
		case ports.ActionDeny:
			return nil, &pipeline.DeniedError{StageName: stage.Name(), Reason: out.DenyReason}
		case ports.ActionMutate:
			if out.Response == nil {
				return nil, fmt.Errorf("webhook stage %s: mutate without response", stage.Name())
			}
			// Request is not part of the wire format.
			if out.Response.Request == nil {
				out.Response.Request = resp.Request
			}
			return out.Response, nil
		default:
			return nil, nil
		}
	}
}
