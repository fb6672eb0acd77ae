package movement

import (
	"context"
	"fmt"
	"time"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/pkg/logger"
)

// Service records and serves movement history.
// Appends run inside the caller's unit of work; reads take no transaction
// beyond a consistent snapshot.
type Service struct {
	repo Repository
}

// NewService creates a new movement recorder service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// AppendProductMovement records a product-level entry.
func (s *Service) AppendProductMovement(ctx context.Context, productID id.ID, kind Kind, quantity types.Quantity, note *string) (*ProductMovement, error) {
	if id.IsNil(productID) {
		return nil, apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if !kind.Valid() {
		return nil, apperror.NewValidation("invalid movement kind").
			WithDetail("field", "kind").
			WithDetail("value", string(kind))
	}
	if quantity.IsZero() {
		return nil, apperror.NewValidation("movement quantity cannot be zero").
			WithDetail("field", "quantity")
	}
	// Only adjustments may be negative; in/out movements store magnitude.
	if kind != KindAdjustment && quantity.IsNegative() {
		return nil, apperror.NewValidation("movement quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("kind", string(kind))
	}

	m := NewProductMovement(productID, kind, quantity, note)
	if err := s.repo.AppendProduct(ctx, m); err != nil {
		return nil, fmt.Errorf("append product movement: %w", err)
	}

	logger.Debug(ctx, "product movement recorded",
		"product_id", productID,
		"kind", string(kind),
		"quantity", quantity.String(),
	)

	return m, nil
}

// AppendBatchMovement records a batch-level entry.
func (s *Service) AppendBatchMovement(ctx context.Context, batchID id.ID, kind Kind, quantity types.Quantity) (*BatchMovement, error) {
	if id.IsNil(batchID) {
		return nil, apperror.NewValidation("batch is required").
			WithDetail("field", "batchId")
	}
	if !kind.Valid() {
		return nil, apperror.NewValidation("invalid movement kind").
			WithDetail("field", "kind").
			WithDetail("value", string(kind))
	}
	if quantity.IsZero() {
		return nil, apperror.NewValidation("movement quantity cannot be zero").
			WithDetail("field", "quantity")
	}

	m := NewBatchMovement(batchID, kind, quantity)
	if err := s.repo.AppendBatch(ctx, m); err != nil {
		return nil, fmt.Errorf("append batch movement: %w", err)
	}

	return m, nil
}

// ListMovements returns product movements newest first.
// A nil productID lists movements across all products.
func (s *Service) ListMovements(ctx context.Context, productID *id.ID, filter Filter) ([]ProductMovement, error) {
	if filter.Kind != nil && !filter.Kind.Valid() {
		return nil, apperror.NewValidation("invalid movement kind").
			WithDetail("field", "kind").
			WithDetail("value", string(*filter.Kind))
	}

	if productID == nil {
		return s.repo.ListAll(ctx, filter)
	}
	return s.repo.ListByProduct(ctx, *productID, filter)
}

// ListBatchMovements returns batch movements newest first.
func (s *Service) ListBatchMovements(ctx context.Context, batchID id.ID, filter Filter) ([]BatchMovement, error) {
	if id.IsNil(batchID) {
		return nil, apperror.NewValidation("batch is required").
			WithDetail("field", "batchId")
	}
	return s.repo.ListByBatch(ctx, batchID, filter)
}

// GetTurnover sums per-kind movement quantities for a product over [from, to).
func (s *Service) GetTurnover(ctx context.Context, productID id.ID, from, to time.Time) (Turnover, error) {
	if !to.After(from) {
		return Turnover{}, apperror.NewValidation("period end must be after period start")
	}
	return s.repo.Turnover(ctx, productID, from, to)
}
