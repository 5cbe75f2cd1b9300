package ports

import (
	"context"

	"tradeplanner/internal/domain"
)

// TradeRepository defines the interface for persisting trades between
// sessions. The in-memory store is the source of truth while the process
// runs; the repository is written through on every mutation and read once
// at startup.
type TradeRepository interface {
	// Save inserts or replaces a trade and its partial-sale history.
	Save(ctx context.Context, trade *domain.Trade) error
	// LoadAll retrieves every persisted trade in creation order.
	LoadAll(ctx context.Context) ([]*domain.Trade, error)
	// Delete removes a trade and its partial sales.
	// Returns ErrNotFound if no trade with the id exists.
	Delete(ctx context.Context, id string) error
	// DeleteAll removes every trade and partial sale. Used when a restored
	// backup replaces the persisted session wholesale.
	DeleteAll(ctx context.Context) error
	// Close releases the underlying storage resources.
	Close() error
}
