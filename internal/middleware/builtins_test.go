package middleware

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
	"github.com/tjfontaine/polyglot-connector/internal/pkg/config"
)

type fakeStore struct {
	mu     sync.Mutex
	saved  []*domain.Interaction
	failOn error
}

var _ ports.InteractionStore = (*fakeStore)(nil)

func (s *fakeStore) SaveInteraction(ctx context.Context, i *domain.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != nil {
		return s.failOn
	}
	s.saved = append(s.saved, i)
	return nil
}

func (s *fakeStore) GetInteraction(ctx context.Context, id string) (*domain.Interaction, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) ListInteractions(ctx context.Context, opts ports.InteractionListOptions) ([]*domain.Interaction, error) {
	return nil, nil
}

func (s *fakeStore) Close() error { return nil }

func newResponse(status int) *domain.Response {
	req := newRequest()
	req.ID = "req-1"
	return &domain.Response{
		Request:    req,
		StatusCode: status,
		Headers:    make(http.Header),
		Duration:   150 * time.Millisecond,
	}
}

func TestRequestIDPipe(t *testing.T) {
	t.Run("generates id", func(t *testing.T) {
		req := newRequest()
		if _, err := RequestIDPipe()(context.Background(), req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.ID == "" {
			t.Fatal("expected request ID to be set")
		}
		if req.Headers.Get(RequestIDHeader) != req.ID {
			t.Errorf("expected header %q, got %q", req.ID, req.Headers.Get(RequestIDHeader))
		}
	})

	t.Run("keeps existing header", func(t *testing.T) {
		req := newRequest()
		req.Headers.Set(RequestIDHeader, "from-caller")
		if _, err := RequestIDPipe()(context.Background(), req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.ID != "from-caller" {
			t.Errorf("expected ID from-caller, got %q", req.ID)
		}
	})

	t.Run("keeps existing id", func(t *testing.T) {
		req := newRequest()
		req.ID = "preset"
		if _, err := RequestIDPipe()(context.Background(), req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.Headers.Get(RequestIDHeader) != "preset" {
			t.Errorf("expected header preset, got %q", req.Headers.Get(RequestIDHeader))
		}
	})
}

func TestLoggingPipes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	onRequest, onResponse := LoggingPipes(logger)

	req := newRequest()
	req.ID = "req-1"
	if _, err := onRequest(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := onResponse(context.Background(), newResponse(503)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"request started",
		"url=https://api.example.com/users",
		"request completed",
		"level=WARN",
		"status=503",
		"request_id=req-1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestMetricsPipe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	pipe := MetricsPipe(m)
	for _, status := range []int{200, 201, 404} {
		if _, err := pipe(context.Background(), newResponse(status)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("test", "GET", "2xx")); got != 2 {
		t.Errorf("expected 2 2xx requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("test", "GET", "4xx")); got != 1 {
		t.Errorf("expected 1 4xx request, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var found bool
	for _, mf := range families {
		if mf.GetName() == "connector_request_duration_seconds" {
			found = true
			if n := mf.GetMetric()[0].GetHistogram().GetSampleCount(); n != 3 {
				t.Errorf("expected 3 observations, got %d", n)
			}
		}
	}
	if !found {
		t.Error("expected duration histogram to be registered")
	}
}

func TestNewMetrics_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	second, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("second NewMetrics() error = %v", err)
	}
	if first.RequestsTotal != second.RequestsTotal {
		t.Error("expected the existing collector to be reused")
	}
}

func TestDecompressPipe(t *testing.T) {
	const payload = `{"login":"octocat"}`

	var brBuf bytes.Buffer
	bw := brotli.NewWriter(&brBuf)
	bw.Write([]byte(payload))
	bw.Close()

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	gw.Write([]byte(payload))
	gw.Close()

	tests := []struct {
		name     string
		encoding string
		body     []byte
		want     string
		keepEnc  bool
	}{
		{name: "brotli", encoding: "br", body: brBuf.Bytes(), want: payload},
		{name: "gzip", encoding: "gzip", body: gzBuf.Bytes(), want: payload},
		{name: "identity", encoding: "", body: []byte(payload), want: payload},
		{name: "unknown", encoding: "zstd", body: []byte("opaque"), want: "opaque", keepEnc: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := newResponse(200)
			resp.Body = tt.body
			if tt.encoding != "" {
				resp.Headers.Set("Content-Encoding", tt.encoding)
			}
			resp.Headers.Set("Content-Length", "999")

			if _, err := DecompressPipe()(context.Background(), resp); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(resp.Body) != tt.want {
				t.Errorf("expected body %q, got %q", tt.want, resp.Body)
			}
			if tt.keepEnc != (resp.Header("Content-Encoding") != "") {
				t.Errorf("unexpected Content-Encoding %q", resp.Header("Content-Encoding"))
			}
		})
	}
}

func TestDecompressPipe_CorruptBody(t *testing.T) {
	resp := newResponse(200)
	resp.Body = []byte("not gzip")
	resp.Headers.Set("Content-Encoding", "gzip")

	if _, err := DecompressPipe()(context.Background(), resp); err == nil {
		t.Error("expected error for corrupt gzip body")
	}
}

func TestRecordPipe(t *testing.T) {
	store := &fakeStore{}
	resp := newResponse(200)
	resp.Request.Headers.Set("Authorization", "Bearer secret")

	if _, err := RecordPipe(store, nil)(context.Background(), resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected 1 saved interaction, got %d", len(store.saved))
	}
	saved := store.saved[0]
	if saved.ID != "req-1" || saved.Connector != "test" {
		t.Errorf("unexpected interaction: %+v", saved)
	}
	if saved.RequestHeaders["Authorization"] != "[REDACTED]" {
		t.Errorf("expected Authorization to be redacted, got %q", saved.RequestHeaders["Authorization"])
	}
}

func TestRecordPipe_AssignsMissingID(t *testing.T) {
	store := &fakeStore{}
	resp := newResponse(200)
	resp.Request.ID = ""

	if _, err := RecordPipe(store, nil)(context.Background(), resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.saved) != 1 || store.saved[0].ID == "" {
		t.Fatal("expected interaction to be recorded under a generated ID")
	}
}

func TestRecordPipe_StoreFailureDoesNotFail(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	store := &fakeStore{failOn: errors.New("disk full")}

	if _, err := RecordPipe(store, logger)(context.Background(), newResponse(200)); err != nil {
		t.Fatalf("expected store failure to be swallowed, got %v", err)
	}
	if !strings.Contains(buf.String(), "disk full") {
		t.Errorf("expected failure to be logged, got %q", buf.String())
	}
}

func TestInstall(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	store := &fakeStore{}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	p := Install(New(), config.MiddlewareConfig{
		RequestID:  true,
		Logging:    true,
		Metrics:    true,
		Decompress: true,
		Record:     true,
	}, Deps{Logger: logger, Metrics: m, Store: store})

	if p.RequestPipeline().Len() != 2 {
		t.Errorf("expected 2 request pipes, got %d", p.RequestPipeline().Len())
	}
	if p.ResponsePipeline().Len() != 4 {
		t.Errorf("expected 4 response pipes, got %d", p.ResponsePipeline().Len())
	}

	req, err := p.ExecuteRequestPipeline(context.Background(), newRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ID == "" {
		t.Error("expected request ID pipe to run")
	}

	if _, err := p.ExecuteResponsePipeline(context.Background(), &domain.Response{Request: req, StatusCode: 200, Headers: make(http.Header)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.saved) != 1 || store.saved[0].ID != req.ID {
		t.Error("expected interaction to be recorded with the request ID")
	}
}

func TestInstall_MissingDeps(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	p := Install(New(), config.MiddlewareConfig{Metrics: true, Record: true}, Deps{Logger: logger})

	if p.ResponsePipeline().Len() != 0 {
		t.Errorf("expected no response pipes, got %d", p.ResponsePipeline().Len())
	}
	if !strings.Contains(buf.String(), "no metrics registry") || !strings.Contains(buf.String(), "no interaction store") {
		t.Errorf("expected warnings for missing deps, got %q", buf.String())
	}
}
