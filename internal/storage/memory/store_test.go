package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
)

func newInteraction(id, connector string, at time.Time) *domain.Interaction {
	return &domain.Interaction{
		ID:             id,
		Connector:      connector,
		Method:         "GET",
		URL:            "https://api.example.com/" + id,
		StatusCode:     200,
		Status:         domain.InteractionStatusCompleted,
		RequestHeaders: map[string]string{"Accept": "application/json"},
		ResponseBody:   []byte(`{"ok":true}`),
		CreatedAt:      at,
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	store := New()
	ctx := context.Background()

	in := newInteraction("req-1", "github", time.Now())
	if err := store.SaveInteraction(ctx, in); err != nil {
		t.Fatalf("SaveInteraction() error = %v", err)
	}

	// Mutating the caller's copy must not affect the store.
	in.RequestHeaders["Accept"] = "text/plain"

	got, err := store.GetInteraction(ctx, "req-1")
	if err != nil {
		t.Fatalf("GetInteraction() error = %v", err)
	}
	if got.RequestHeaders["Accept"] != "application/json" {
		t.Errorf("expected stored copy to be isolated, got %q", got.RequestHeaders["Accept"])
	}
	if string(got.ResponseBody) != `{"ok":true}` {
		t.Errorf("unexpected body %q", got.ResponseBody)
	}
}

func TestStore_GetMissing(t *testing.T) {
	_, err := New().GetInteraction(context.Background(), "nope")
	if !errors.Is(err, ports.ErrInteractionNotFound) {
		t.Fatalf("expected ErrInteractionNotFound, got %v", err)
	}
}

func TestStore_SaveRequiresID(t *testing.T) {
	if err := New().SaveInteraction(context.Background(), &domain.Interaction{}); err == nil {
		t.Error("expected error for empty ID")
	}
}

func TestStore_List(t *testing.T) {
	store := New()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		connector := "github"
		if i%2 == 1 {
			connector = "stripe"
		}
		if err := store.SaveInteraction(ctx, newInteraction(fmt.Sprintf("req-%d", i), connector, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("SaveInteraction() error = %v", err)
		}
	}

	tests := []struct {
		name string
		opts ports.InteractionListOptions
		want []string
	}{
		{name: "all newest first", opts: ports.InteractionListOptions{}, want: []string{"req-4", "req-3", "req-2", "req-1", "req-0"}},
		{name: "by connector", opts: ports.InteractionListOptions{Connector: "stripe"}, want: []string{"req-3", "req-1"}},
		{name: "limit", opts: ports.InteractionListOptions{Limit: 2}, want: []string{"req-4", "req-3"}},
		{name: "offset", opts: ports.InteractionListOptions{Limit: 2, Offset: 3}, want: []string{"req-1", "req-0"}},
		{name: "offset past end", opts: ports.InteractionListOptions{Offset: 10}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListInteractions(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListInteractions() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d interactions, got %d", len(tt.want), len(got))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
				}
			}
		})
	}
}
