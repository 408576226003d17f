package middleware

import (
	"log/slog"

	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
	"github.com/tjfontaine/polyglot-connector/internal/pkg/config"
)

// Deps are the collaborators built-in pipes may need.
type Deps struct {
	Logger  *slog.Logger
	Metrics *Metrics
	Store   ports.InteractionStore
}

// Install registers the built-in pipes enabled in cfg on p. Pipes whose
// dependency is missing (metrics without Metrics, record without Store) are
// skipped with a warning.
func Install(p *Pipeline, cfg config.MiddlewareConfig, deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.RequestID {
		p.AddRequestPipe(RequestIDPipe(), HighPriority())
	}

	if cfg.Decompress {
		p.AddResponsePipe(DecompressPipe(), HighPriority())
	}

	if cfg.Logging {
		onRequest, onResponse := LoggingPipes(logger)
		p.AddRequestPipe(onRequest)
		p.AddResponsePipe(onResponse)
	}

	if cfg.Metrics {
		if deps.Metrics == nil {
			logger.Warn("metrics pipe enabled but no metrics registry configured")
		} else {
			p.AddResponsePipe(MetricsPipe(deps.Metrics))
		}
	}

	if cfg.Record {
		if deps.Store == nil {
			logger.Warn("record pipe enabled but no interaction store configured")
		} else {
			p.AddResponsePipe(RecordPipe(deps.Store, logger))
		}
	}

	return p
}
