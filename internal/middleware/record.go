package middleware

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
)

// RecordPipe saves every exchange to store. A failed save is logged and the
// response continues unchanged. Exchanges without a request ID are recorded
// under a fresh UUID.
func RecordPipe(store ports.InteractionStore, logger *slog.Logger) ResponsePipe {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, resp *domain.Response) (*domain.Response, error) {
		interaction := domain.NewInteraction(resp)
		if interaction.ID == "" {
			interaction.ID = uuid.New().String()
		}
		if err := store.SaveInteraction(ctx, interaction); err != nil {
			logger.Warn("failed to record interaction",
				slog.String("request_id", interaction.ID),
				slog.String("connector", interaction.Connector),
				slog.String("error", err.Error()))
		}
		return nil, nil
	}
}
