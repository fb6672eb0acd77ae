// Package batch provides the purchase batch ledger (lotes).
// A batch is a discrete purchased quantity of a product at a fixed unit cost,
// partially consumable over time. Batches are the source of truth for current
// stock; movements only describe history.
package batch

import (
	"context"
	"time"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
)

// Batch represents a purchase batch ("lote") of a product.
type Batch struct {
	ID id.ID `db:"id" json:"id"`

	// ProductID is the owning product
	ProductID id.ID `db:"product_id" json:"productId"`

	// SupplierID is the optional source counterparty
	SupplierID *id.ID `db:"supplier_id" json:"supplierId,omitempty"`

	// UnitCost is the purchase cost per unit, fixed for the batch lifetime
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	// QuantityPurchased is immutable once set
	QuantityPurchased types.Quantity `db:"quantity_purchased" json:"quantityPurchased"`

	// QuantityRemaining decreases as the batch is consumed. Never negative.
	QuantityRemaining types.Quantity `db:"quantity_remaining" json:"quantityRemaining"`

	// PurchaseDate drives FIFO consumption order
	PurchaseDate time.Time `db:"purchase_date" json:"purchaseDate"`

	// ExpiryDate is optional (perishables)
	ExpiryDate *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// New creates a batch from a purchase. Remaining starts equal to purchased.
func New(productID id.ID, unitCost types.Money, purchased types.Quantity, purchaseDate time.Time, supplierID *id.ID, expiryDate *time.Time) *Batch {
	return &Batch{
		ID:                id.New(),
		ProductID:         productID,
		SupplierID:        supplierID,
		UnitCost:          unitCost,
		QuantityPurchased: purchased,
		QuantityRemaining: purchased,
		PurchaseDate:      purchaseDate,
		ExpiryDate:        expiryDate,
		CreatedAt:         time.Now().UTC(),
	}
}

// Validate checks batch invariants.
func (b *Batch) Validate(ctx context.Context) error {
	if id.IsNil(b.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}

	if !b.QuantityPurchased.IsPositive() {
		return apperror.NewValidation("purchased quantity must be positive").
			WithDetail("field", "quantityPurchased").
			WithDetail("value", b.QuantityPurchased.String())
	}

	if b.QuantityRemaining.IsNegative() {
		return apperror.NewValidation("remaining quantity cannot be negative").
			WithDetail("field", "quantityRemaining").
			WithDetail("value", b.QuantityRemaining.String())
	}

	if b.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "unitCost").
			WithDetail("value", b.UnitCost.String())
	}

	if b.PurchaseDate.IsZero() {
		return apperror.NewValidation("purchase date is required").
			WithDetail("field", "purchaseDate")
	}

	if b.ExpiryDate != nil && !b.ExpiryDate.After(b.PurchaseDate) {
		return apperror.NewValidation("expiry date must be after purchase date").
			WithDetail("field", "expiryDate")
	}

	return nil
}

// Active reports whether the batch still has stock to consume.
func (b *Batch) Active() bool {
	return b.QuantityRemaining.IsPositive()
}

// Value returns remaining quantity x unit cost, exact.
func (b *Batch) Value() types.Money {
	return b.QuantityRemaining.Decimal().Mul(b.UnitCost)
}

// IsExpired reports whether the batch has passed its expiry date.
func (b *Batch) IsExpired(now time.Time) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(now)
}

// ExpiresWithin reports whether the batch will expire within d from now.
func (b *Batch) ExpiresWithin(now time.Time, d time.Duration) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(now.Add(d))
}

// ConsumesBefore defines the total FIFO consumption order:
// purchase date ascending, id ascending on ties. UUIDv7 ids make the
// tie-break chronological as well as deterministic.
func (b *Batch) ConsumesBefore(other *Batch) bool {
	if !b.PurchaseDate.Equal(other.PurchaseDate) {
		return b.PurchaseDate.Before(other.PurchaseDate)
	}
	return b.ID.String() < other.ID.String()
}
