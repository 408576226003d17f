package ports

import (
	"context"
	"errors"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
)

// DefaultListLimit applies when InteractionListOptions.Limit is zero.
const DefaultListLimit = 100

// ErrInteractionNotFound is returned by GetInteraction for unknown IDs.
var ErrInteractionNotFound = errors.New("interaction not found")

// InteractionStore persists recorded request/response exchanges.
// Implementations: in-memory (default), SQL (SQLite or PostgreSQL).
type InteractionStore interface {
	// SaveInteraction stores an interaction, replacing any record with the same ID.
	SaveInteraction(ctx context.Context, interaction *domain.Interaction) error

	// GetInteraction retrieves an interaction by ID.
	GetInteraction(ctx context.Context, id string) (*domain.Interaction, error)

	// ListInteractions lists interactions, newest first.
	ListInteractions(ctx context.Context, opts InteractionListOptions) ([]*domain.Interaction, error)

	// Close releases the underlying resources.
	Close() error
}

// InteractionListOptions filters ListInteractions.
type InteractionListOptions struct {
	Connector string
	Limit     int
	Offset    int
}
