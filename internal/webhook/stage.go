// Package webhook runs out-of-process pipes: each stage POSTs the current
// request (and response) to an HTTP endpoint that allows, denies or mutates
// it.
//
// Stage protocol:
//
//	POST {url}
//	{"phase": "request", "request": {...}, "response": null, "metadata": {...}}
//
//	200 OK
//	{"action": "allow" | "deny" | "mutate", "request": {...}, "response": {...}, "deny_reason": "..."}
//
// Bodies are base64 encoded, as encoding/json does for []byte.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
)

// DefaultTimeout bounds one webhook call when the config sets none.
const DefaultTimeout = 5 * time.Second

// Stage calls an external HTTP endpoint for pipeline processing.
type Stage struct {
	name         string
	phase        ports.StagePhase
	url          string
	timeout      time.Duration
	onError      ports.StageAction // Action to take on error (allow or deny)
	retries      int
	highPriority bool
	headers      map[string]string
	client       *http.Client
	logger       *slog.Logger
}

// StageConfig configures a webhook stage.
type StageConfig struct {
	Name         string
	Phase        ports.StagePhase
	URL          string
	Timeout      time.Duration
	OnError      ports.StageAction // "allow" or "deny" (default: deny)
	Retries      int
	HighPriority bool
	Headers      map[string]string
	Client       *http.Client
	Logger       *slog.Logger
}

// NewStage creates a webhook stage.
func NewStage(cfg StageConfig) *Stage {
	onError := cfg.OnError
	if onError == "" {
		onError = ports.ActionDeny // Default to fail-closed
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Stage{
		name:         cfg.Name,
		phase:        cfg.Phase,
		url:          cfg.URL,
		timeout:      timeout,
		onError:      onError,
		retries:      cfg.Retries,
		highPriority: cfg.HighPriority,
		headers:      cfg.Headers,
		client:       client,
		logger:       logger,
	}
}

// Name returns the stage identifier.
func (s *Stage) Name() string {
	return s.name
}

// Phase returns the pipeline the stage joins.
func (s *Stage) Phase() ports.StagePhase {
	return s.phase
}

// HighPriority reports whether the stage is registered ahead of normal pipes.
func (s *Stage) HighPriority() bool {
	return s.highPriority
}

// Process executes the webhook call.
func (s *Stage) Process(ctx context.Context, in *ports.StageInput) (*ports.StageOutput, error) {
	var lastErr error

	attempts := s.retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		output, err := s.doRequest(ctx, in)
		if err == nil {
			return output, nil
		}
		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			break
		}
	}

	return s.handleError(lastErr)
}

func (s *Stage) doRequest(ctx context.Context, in *ports.StageInput) (*ports.StageOutput, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal stage input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var output ports.StageOutput
	if err := json.Unmarshal(respBody, &output); err != nil {
		return nil, fmt.Errorf("unmarshal stage output: %w", err)
	}

	switch output.Action {
	case ports.ActionAllow, ports.ActionDeny, ports.ActionMutate:
	case "":
		output.Action = ports.ActionAllow
	default:
		return nil, fmt.Errorf("invalid action from webhook: %s", output.Action)
	}

	return &output, nil
}

func (s *Stage) handleError(err error) (*ports.StageOutput, error) {
	switch s.onError {
	case ports.ActionAllow:
		s.logger.Warn("webhook stage failed, allowing",
			slog.String("stage", s.name),
			slog.String("error", err.Error()))
		return &ports.StageOutput{Action: ports.ActionAllow}, nil
	case ports.ActionDeny:
		return &ports.StageOutput{
			Action:     ports.ActionDeny,
			DenyReason: fmt.Sprintf("webhook error: %v", err),
		}, nil
	default:
		return nil, fmt.Errorf("webhook stage %s failed: %w", s.name, err)
	}
}

var _ ports.Stage = (*Stage)(nil)
