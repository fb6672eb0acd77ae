// Package product provides the product catalog entry the inventory engine
// hangs off. The catalog itself is owned by the back office; the engine only
// ever mutates the aggregate stock counter.
package product

import (
	"context"
	"time"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
)

// Product is a catalog item with its aggregate stock counter.
//
// Stock always equals the sum of the product's batches' remaining
// quantities; only the consumption engine mutates it, inside the same unit
// of work as the batch mutation that justifies the change.
type Product struct {
	ID id.ID `db:"id" json:"id"`

	// Code is the item code/SKU
	Code string `db:"code" json:"code"`

	Name string `db:"name" json:"name"`

	// Stock is the aggregate quantity across active batches
	Stock types.Quantity `db:"stock" json:"stock"`

	// MinimumStock is the reorder threshold
	MinimumStock types.Quantity `db:"minimum_stock" json:"minimumStock"`

	// DeletionMark indicates soft-deleted entry
	DeletionMark bool `db:"deletion_mark" json:"deletionMark"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates a product with zero stock.
func New(code, name string, minimumStock types.Quantity) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:           id.New(),
		Code:         code,
		Name:         name,
		MinimumStock: minimumStock,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks product invariants.
func (p *Product) Validate(ctx context.Context) error {
	if p.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if p.Stock.IsNegative() {
		return apperror.NewValidation("stock cannot be negative").
			WithDetail("field", "stock")
	}
	if p.MinimumStock.IsNegative() {
		return apperror.NewValidation("minimum stock cannot be negative").
			WithDetail("field", "minimumStock")
	}
	return nil
}

// BelowMinimum reports whether aggregate stock is under the reorder threshold.
func (p *Product) BelowMinimum() bool {
	return p.Stock < p.MinimumStock
}
