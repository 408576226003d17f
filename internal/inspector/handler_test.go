package inspector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
	"github.com/tjfontaine/polyglot-connector/internal/storage/memory"
)

func newTestHandler(t *testing.T) (*Handler, *memory.Store, *prometheus.Registry) {
	t.Helper()
	store := memory.New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, conn := range []string{"github", "stripe", "github"} {
		err := store.SaveInteraction(context.Background(), &domain.Interaction{
			ID:         "req-" + string(rune('a'+i)),
			Connector:  conn,
			Method:     "GET",
			URL:        "https://api.example.com",
			StatusCode: 200,
			Status:     domain.InteractionStatusCompleted,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("SaveInteraction() error = %v", err)
		}
	}

	reg := prometheus.NewRegistry()
	return New(store, reg, nil), store, reg
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandler_List(t *testing.T) {
	h, _, _ := newTestHandler(t)
	routes := h.Routes()

	tests := []struct {
		name    string
		target  string
		status  int
		wantIDs []string
	}{
		{name: "all", target: "/interactions", status: 200, wantIDs: []string{"req-c", "req-b", "req-a"}},
		{name: "by connector", target: "/interactions?connector=github", status: 200, wantIDs: []string{"req-c", "req-a"}},
		{name: "limit", target: "/interactions?limit=1", status: 200, wantIDs: []string{"req-c"}},
		{name: "offset", target: "/interactions?offset=2", status: 200, wantIDs: []string{"req-a"}},
		{name: "bad limit", target: "/interactions?limit=abc", status: 400},
		{name: "limit too large", target: "/interactions?limit=5000", status: 400},
		{name: "negative offset", target: "/interactions?offset=-1", status: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, routes, tt.target)
			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.wantIDs == nil {
				return
			}

			var body struct {
				Object string               `json:"object"`
				Data   []domain.Interaction `json:"data"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Object != "list" || len(body.Data) != len(tt.wantIDs) {
				t.Fatalf("unexpected body %+v", body)
			}
			for i, id := range tt.wantIDs {
				if body.Data[i].ID != id {
					t.Errorf("position %d: expected %s, got %s", i, id, body.Data[i].ID)
				}
			}
		})
	}
}

func TestHandler_Get(t *testing.T) {
	h, _, _ := newTestHandler(t)
	routes := h.Routes()

	rec := do(t, routes, "/interactions/req-b")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got domain.Interaction
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Connector != "stripe" {
		t.Errorf("expected stripe interaction, got %+v", got)
	}

	if rec := do(t, routes, "/interactions/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_NoStore(t *testing.T) {
	routes := New(nil, prometheus.NewRegistry(), nil).Routes()

	for _, target := range []string{"/interactions", "/interactions/x"} {
		if rec := do(t, routes, target); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", target, rec.Code)
		}
	}
}

func TestHandler_Metrics(t *testing.T) {
	h, _, reg := newTestHandler(t)
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "connector_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Add(3)

	rec := do(t, h.Routes(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connector_test_total 3") {
		t.Errorf("expected metric in output, got:\n%s", rec.Body.String())
	}
}

func TestHandler_HealthAndStats(t *testing.T) {
	h, _, _ := newTestHandler(t)
	routes := h.Routes()

	if rec := do(t, routes, "/healthz"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}

	rec := do(t, routes, "/stats")
	var stats StatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.GoVersion == "" || stats.NumGoroutine == 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
