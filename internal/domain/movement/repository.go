package movement

import (
	"context"
	"time"

	"stocklot/internal/core/id"
)

// Repository defines storage operations for the movement ledger.
//
// There are deliberately no update or delete methods: committed movements
// are immutable. History is corrected with compensating adjustment entries.
type Repository interface {
	// AppendProduct inserts a product-level entry
	AppendProduct(ctx context.Context, m *ProductMovement) error

	// AppendBatch inserts a batch-level entry
	AppendBatch(ctx context.Context, m *BatchMovement) error

	// ListByProduct returns product movements newest first
	ListByProduct(ctx context.Context, productID id.ID, filter Filter) ([]ProductMovement, error)

	// ListAll returns product movements across all products newest first
	ListAll(ctx context.Context, filter Filter) ([]ProductMovement, error)

	// ListByBatch returns batch movements newest first
	ListByBatch(ctx context.Context, batchID id.ID, filter Filter) ([]BatchMovement, error)

	// Turnover sums movement quantities per kind for a product over [from, to)
	Turnover(ctx context.Context, productID id.ID, from, to time.Time) (Turnover, error)
}

// Filter narrows movement history queries.
type Filter struct {
	Kind     *Kind
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
