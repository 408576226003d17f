package webhook

import (
	"fmt"
	"log/slog"

	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
	"github.com/tjfontaine/polyglot-connector/internal/middleware"
	"github.com/tjfontaine/polyglot-connector/internal/pkg/config"
)

// NewStagesFromConfig creates webhook stages from connector configuration.
func NewStagesFromConfig(cfgs []config.StageConfig, logger *slog.Logger) ([]*Stage, error) {
	stages := make([]*Stage, 0, len(cfgs))
	for _, cfg := range cfgs {
		stage, err := newStageFromConfig(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", cfg.Name, err)
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func newStageFromConfig(cfg config.StageConfig, logger *slog.Logger) (*Stage, error) {
	timeout, err := config.ParseDuration(cfg.Timeout, DefaultTimeout)
	if err != nil {
		return nil, err
	}

	phase := ports.StagePhase(cfg.Phase)
	if phase != ports.PhaseRequest && phase != ports.PhaseResponse {
		return nil, fmt.Errorf("invalid phase %q (must be 'request' or 'response')", cfg.Phase)
	}

	var onError ports.StageAction
	switch cfg.OnError {
	case "", "deny":
		onError = ports.ActionDeny
	case "allow":
		onError = ports.ActionAllow
	default:
		return nil, fmt.Errorf("invalid on_error %q (must be 'allow' or 'deny')", cfg.OnError)
	}

	return NewStage(StageConfig{
		Name:         cfg.Name,
		Phase:        phase,
		URL:          cfg.URL,
		Timeout:      timeout,
		OnError:      onError,
		Retries:      cfg.Retries,
		HighPriority: cfg.HighPriority,
		Headers:      cfg.Headers,
		Logger:       logger,
	}), nil
}

// Install registers each stage on p in its phase's pipeline, in order.
func Install(p *middleware.Pipeline, stages []*Stage) *middleware.Pipeline {
	for _, stage := range stages {
		var opts []middleware.PipeOption
		if stage.HighPriority() {
			opts = append(opts, middleware.HighPriority())
		}

		switch stage.Phase() {
		case ports.PhaseRequest:
			p.AddRequestPipe(RequestPipe(stage), opts...)
		case ports.PhaseResponse:
			p.AddResponsePipe(ResponsePipe(stage), opts...)
		}
	}
	return p
}
