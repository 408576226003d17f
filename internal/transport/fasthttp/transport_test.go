package fasthttp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
)

func TestTransport_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Echo-Method", r.Method)
		w.Header().Set("X-Echo-Query", r.URL.RawQuery)
		w.Header().Set("X-Echo-Token", r.Header.Get("X-Token"))
		w.Header().Set("X-Echo-Content-Type", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	}))
	defer srv.Close()

	req := domain.NewPendingRequest("echo", "PUT", srv.URL, "/items/1")
	req.Query.Set("force", "true")
	req.Headers.Set("X-Token", "abc")
	req.Body = []byte("payload")
	req.ContentType = "text/plain"

	resp, err := New(WithTimeout(5 * time.Second)).Send(context.Background(), req)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201, got %d", resp.StatusCode)
	}
	if resp.Status != "201 Created" {
		t.Errorf("expected status text, got %q", resp.Status)
	}
	if string(resp.Body) != "payload" {
		t.Errorf("expected echoed body, got %q", resp.Body)
	}
	for header, want := range map[string]string{
		"X-Echo-Method":       "PUT",
		"X-Echo-Query":        "force=true",
		"X-Echo-Token":        "abc",
		"X-Echo-Content-Type": "text/plain",
	} {
		if got := resp.Header(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestTransport_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Send(ctx, domain.NewPendingRequest("echo", "GET", "http://127.0.0.1:1", "/"))
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTransport_Deadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	req := domain.NewPendingRequest("slow", "GET", srv.URL, "/")
	req.Timeout = 50 * time.Millisecond

	if _, err := New().Send(context.Background(), req); err == nil {
		t.Fatal("expected deadline error")
	}
}
