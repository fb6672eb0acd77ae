package product

import (
	"context"

	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
)

// Repository defines storage operations for the product catalog.
type Repository interface {
	// Create inserts a new product
	Create(ctx context.Context, p *Product) error

	// GetByID retrieves a product, NOT_FOUND if absent
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// List returns products ordered by code
	List(ctx context.Context, filter ListFilter) ([]Product, error)

	// ListLowStock returns products whose stock is below their minimum
	ListLowStock(ctx context.Context, filter ListFilter) ([]Product, error)

	// AdjustStock applies a signed delta to the aggregate stock counter and
	// returns the updated product. Only the consumption engine calls this,
	// always inside the unit of work that mutates the justifying batches.
	AdjustStock(ctx context.Context, productID id.ID, delta types.Quantity) (*Product, error)
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
