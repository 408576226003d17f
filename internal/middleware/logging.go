package middleware

import (
	"context"
	"log/slog"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
)

// LoggingPipes returns a request pipe that logs the start of each send and a
// response pipe that logs its completion.
func LoggingPipes(logger *slog.Logger) (RequestPipe, ResponsePipe) {
	if logger == nil {
		logger = slog.Default()
	}

	onRequest := func(ctx context.Context, req *domain.PendingRequest) (*domain.PendingRequest, error) {
		logger.LogAttrs(ctx, slog.LevelInfo, "request started",
			slog.String("request_id", req.ID),
			slog.String("connector", req.Connector),
			slog.String("request", req.Name),
			slog.String("method", req.Method),
			slog.String("url", req.URL()),
		)
		return nil, nil
	}

	onResponse := func(ctx context.Context, resp *domain.Response) (*domain.Response, error) {
		attrs := []slog.Attr{
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", resp.Duration),
			slog.Int("bytes", len(resp.Body)),
		}
		if req := resp.Request; req != nil {
			attrs = append(attrs,
				slog.String("request_id", req.ID),
				slog.String("connector", req.Connector),
				slog.String("method", req.Method),
				slog.String("url", req.URL()),
			)
		}

		level := slog.LevelInfo
		if resp.Failed() {
			level = slog.LevelWarn
		}
		logger.LogAttrs(ctx, level, "request completed", attrs...)
		return nil, nil
	}

	return onRequest, onResponse
}
