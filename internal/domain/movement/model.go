// Package movement provides the immutable stock movement ledger.
// Movements are append-only: correcting a mistake requires a compensating
// adjustment entry, never editing history. Movements are an audit trail,
// not the source of truth for current quantity (batches are).
package movement

import (
	"fmt"
	"time"

	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
)

// Kind is the closed set of movement kinds.
type Kind string

const (
	// KindInbound increases stock (purchase receipt)
	KindInbound Kind = "inbound"
	// KindOutbound decreases stock (sale, FIFO consumption)
	KindOutbound Kind = "outbound"
	// KindAdjustment corrects stock in either direction
	KindAdjustment Kind = "adjustment"
)

// Valid reports whether k is one of the closed kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindInbound, KindOutbound, KindAdjustment:
		return true
	default:
		return false
	}
}

func (k Kind) String() string { return string(k) }

// AggregateDelta converts a movement quantity into the signed delta it
// applies to the product aggregate. Inbound quantities are positive,
// outbound quantities are stored positive and negated here, adjustment
// quantities carry their own sign. The switch is exhaustive: an unknown
// kind is an error, never silently ignored.
func (k Kind) AggregateDelta(q types.Quantity) (types.Quantity, error) {
	switch k {
	case KindInbound:
		return q, nil
	case KindOutbound:
		return q.Neg(), nil
	case KindAdjustment:
		return q, nil
	default:
		return 0, fmt.Errorf("unknown movement kind: %q", k)
	}
}

// ProductMovement is a product-level audit entry summarizing one operation.
type ProductMovement struct {
	ID        id.ID          `db:"id" json:"id"`
	ProductID id.ID          `db:"product_id" json:"productId"`
	Kind      Kind           `db:"kind" json:"kind"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	Note      *string        `db:"note" json:"note,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// NewProductMovement creates a product-level entry.
func NewProductMovement(productID id.ID, kind Kind, quantity types.Quantity, note *string) *ProductMovement {
	return &ProductMovement{
		ID:        id.New(),
		ProductID: productID,
		Kind:      kind,
		Quantity:  quantity,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}
}

// BatchMovement is a batch-level audit entry. An outbound operation that
// touches N batches produces N of these plus one ProductMovement summary.
type BatchMovement struct {
	ID        id.ID          `db:"id" json:"id"`
	BatchID   id.ID          `db:"batch_id" json:"batchId"`
	Kind      Kind           `db:"kind" json:"kind"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// NewBatchMovement creates a batch-level entry.
func NewBatchMovement(batchID id.ID, kind Kind, quantity types.Quantity) *BatchMovement {
	return &BatchMovement{
		ID:        id.New(),
		BatchID:   batchID,
		Kind:      kind,
		Quantity:  quantity,
		CreatedAt: time.Now().UTC(),
	}
}

// Turnover aggregates movement totals over a period.
type Turnover struct {
	ProductID  id.ID          `json:"productId"`
	Inbound    types.Quantity `json:"inbound"`
	Outbound   types.Quantity `json:"outbound"`
	Adjustment types.Quantity `json:"adjustment"`
	Net        types.Quantity `json:"net"`
}
