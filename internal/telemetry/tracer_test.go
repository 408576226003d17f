package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestInitTracer_ExportsSpans(t *testing.T) {
	var spans bytes.Buffer
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	shutdown, err := InitTracer("connector-test", logger, WithWriter(&spans), WithSyncExport())
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}

	_, span := Tracer().Start(context.Background(), "test.span")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error = %v", err)
	}

	if !strings.Contains(spans.String(), "test.span") {
		t.Errorf("expected exported span, got %q", spans.String())
	}
	if !strings.Contains(spans.String(), "connector-test") {
		t.Errorf("expected service name in resource, got %q", spans.String())
	}
	if !strings.Contains(logs.String(), "OpenTelemetry initialized") {
		t.Errorf("expected init log, got %q", logs.String())
	}
}
