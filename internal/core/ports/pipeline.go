package ports

import (
	"context"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
)

// StagePhase determines which pipeline an external stage joins.
type StagePhase string

const (
	// PhaseRequest runs before the request is handed to the transport.
	PhaseRequest StagePhase = "request"
	// PhaseResponse runs after the response is received.
	PhaseResponse StagePhase = "response"
)

// StageAction is the result action from an external stage.
type StageAction string

const (
	// ActionAllow keeps the subject unchanged.
	ActionAllow StageAction = "allow"
	// ActionDeny aborts the pipeline.
	ActionDeny StageAction = "deny"
	// ActionMutate replaces the subject with the returned one.
	ActionMutate StageAction = "mutate"
)

// StageInput is the data sent to an external stage.
type StageInput struct {
	// Phase is "request" or "response".
	Phase StagePhase `json:"phase"`
	// Request is always present.
	Request *domain.PendingRequest `json:"request"`
	// Response is only present in the response phase.
	Response *domain.Response `json:"response,omitempty"`
	// Metadata carries the connector name and request ID.
	Metadata map[string]any `json:"metadata"`
}

// StageOutput is returned from an external stage.
type StageOutput struct {
	Action StageAction `json:"action"`
	// Request replaces the pending request when Action is mutate in the request phase.
	Request *domain.PendingRequest `json:"request,omitempty"`
	// Response replaces the response when Action is mutate in the response phase.
	Response *domain.Response `json:"response,omitempty"`
	// DenyReason explains a deny.
	DenyReason string `json:"deny_reason,omitempty"`
}

// Stage is an out-of-process pipe, e.g. a webhook.
type Stage interface {
	// Name returns the unique identifier for this stage.
	Name() string
	// Phase returns which pipeline the stage joins.
	Phase() StagePhase
	// Process executes the stage logic.
	Process(ctx context.Context, in *StageInput) (*StageOutput, error)
}
