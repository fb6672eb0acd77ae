package batch

import (
	"context"
	"time"

	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
)

// Repository defines storage operations for the batch ledger.
//
// Every listing is a fresh query, ordered by purchase_date ASC, id ASC so
// repeated runs against identical state walk batches identically.
type Repository interface {
	// Create inserts a new batch
	Create(ctx context.Context, b *Batch) error

	// GetByID retrieves a batch, NOT_FOUND if absent
	GetByID(ctx context.Context, batchID id.ID) (*Batch, error)

	// GetByIDForUpdate retrieves a batch with a row lock.
	// Must be called within a unit of work.
	GetByIDForUpdate(ctx context.Context, batchID id.ID) (*Batch, error)

	// ListActive returns batches with remaining quantity > 0 in consumption order
	ListActive(ctx context.Context, productID id.ID) ([]Batch, error)

	// ListActiveForUpdate is ListActive with row locks on every returned batch.
	// The consumption engine uses it so two concurrent withdrawals cannot
	// allocate the same remaining quantity. Must be called within a unit of work.
	ListActiveForUpdate(ctx context.Context, productID id.ID) ([]Batch, error)

	// ListByProduct returns all batches for a product, consumed ones included
	ListByProduct(ctx context.Context, productID id.ID) ([]Batch, error)

	// ListActiveAll returns every active batch across products (fleet valuation)
	ListActiveAll(ctx context.Context) ([]Batch, error)

	// ListExpiring returns active batches whose expiry date falls before the horizon
	ListExpiring(ctx context.Context, filter ExpiryFilter) ([]Batch, error)

	// AdjustRemaining applies a signed delta to quantity_remaining.
	// Fails with NEGATIVE_STOCK when the result would drop below zero;
	// the row is left untouched in that case.
	AdjustRemaining(ctx context.Context, batchID id.ID, delta types.Quantity) (*Batch, error)

	// Delete removes the batch row. The caller must have reversed the
	// remaining quantity out of the product aggregate first.
	Delete(ctx context.Context, batchID id.ID) error
}

// DefaultExpiryHorizon is how far ahead ListExpiring looks when the filter
// does not say otherwise.
const DefaultExpiryHorizon = 30 * 24 * time.Hour

// ExpiryFilter narrows ListExpiring queries.
type ExpiryFilter struct {
	ProductID *id.ID
	Horizon   time.Duration
	Limit     int
}

// HorizonOrDefault returns the configured horizon, falling back to
// DefaultExpiryHorizon when unset.
func (f ExpiryFilter) HorizonOrDefault() time.Duration {
	if f.Horizon > 0 {
		return f.Horizon
	}
	return DefaultExpiryHorizon
}
