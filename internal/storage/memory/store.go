// Package memory provides an in-process InteractionStore, used when no
// database is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
)

// Store keeps interactions in a map. Records are copied on the way in and
// out, so callers cannot mutate stored state.
type Store struct {
	mu           sync.RWMutex
	interactions map[string]*domain.Interaction
}

var _ ports.InteractionStore = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{
		interactions: make(map[string]*domain.Interaction),
	}
}

func (s *Store) SaveInteraction(ctx context.Context, interaction *domain.Interaction) error {
	if interaction == nil || interaction.ID == "" {
		return fmt.Errorf("interaction ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.interactions[interaction.ID] = clone(interaction)
	return nil
}

func (s *Store) GetInteraction(ctx context.Context, id string) (*domain.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	interaction, ok := s.interactions[id]
	if !ok {
		return nil, fmt.Errorf("interaction %s: %w", id, ports.ErrInteractionNotFound)
	}
	return clone(interaction), nil
}

func (s *Store) ListInteractions(ctx context.Context, opts ports.InteractionListOptions) ([]*domain.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Interaction
	for _, interaction := range s.interactions {
		if opts.Connector != "" && interaction.Connector != opts.Connector {
			continue
		}
		matched = append(matched, interaction)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := opts.Limit
	if limit == 0 {
		limit = ports.DefaultListLimit
	}
	if opts.Offset >= len(matched) {
		return []*domain.Interaction{}, nil
	}
	matched = matched[opts.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*domain.Interaction, len(matched))
	for i, interaction := range matched {
		out[i] = clone(interaction)
	}
	return out, nil
}

func (s *Store) Close() error {
	return nil
}

func clone(i *domain.Interaction) *domain.Interaction {
	c := *i
	c.RequestHeaders = cloneMap(i.RequestHeaders)
	c.ResponseHeaders = cloneMap(i.ResponseHeaders)
	c.Metadata = cloneMap(i.Metadata)
	if i.RequestBody != nil {
		c.RequestBody = append([]byte(nil), i.RequestBody...)
	}
	if i.ResponseBody != nil {
		c.ResponseBody = append([]byte(nil), i.ResponseBody...)
	}
	return &c
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
