package batch

import (
	"context"
	"fmt"
	"time"

	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/pkg/logger"
)

// Service provides ledger operations on batches.
// Transactions are managed by the caller (the consumption engine); the
// service itself never opens a unit of work.
type Service struct {
	repo Repository
}

// NewService creates a new batch ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateBatch validates and persists a new purchase batch.
// QuantityRemaining is always initialized to QuantityPurchased.
func (s *Service) CreateBatch(ctx context.Context, productID id.ID, unitCost types.Money, purchased types.Quantity, purchaseDate time.Time, supplierID *id.ID, expiryDate *time.Time) (*Batch, error) {
	b := New(productID, unitCost, purchased, purchaseDate, supplierID, expiryDate)

	if err := b.Validate(ctx); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	logger.Info(ctx, "batch created",
		"batch_id", b.ID,
		"product_id", b.ProductID,
		"purchased", b.QuantityPurchased.String(),
	)

	return b, nil
}

// GetByID retrieves a batch.
func (s *Service) GetByID(ctx context.Context, batchID id.ID) (*Batch, error) {
	return s.repo.GetByID(ctx, batchID)
}

// ListActiveBatches returns active batches in consumption order.
func (s *Service) ListActiveBatches(ctx context.Context, productID id.ID) ([]Batch, error) {
	return s.repo.ListActive(ctx, productID)
}

// ListByProduct returns all batches for a product, including consumed ones.
func (s *Service) ListByProduct(ctx context.Context, productID id.ID) ([]Batch, error) {
	return s.repo.ListByProduct(ctx, productID)
}

// ListExpiring returns active batches expiring before the given horizon.
func (s *Service) ListExpiring(ctx context.Context, filter ExpiryFilter) ([]Batch, error) {
	return s.repo.ListExpiring(ctx, filter)
}

// MutateQuantity applies a signed delta to a batch's remaining quantity.
// A batch that reaches exactly zero becomes inactive but is not deleted.
func (s *Service) MutateQuantity(ctx context.Context, batchID id.ID, delta types.Quantity) (*Batch, error) {
	b, err := s.repo.AdjustRemaining(ctx, batchID, delta)
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "batch quantity mutated",
		"batch_id", batchID,
		"delta", delta.String(),
		"remaining", b.QuantityRemaining.String(),
	)

	return b, nil
}

// DeleteBatch removes a batch row.
// Callers must reverse the remaining quantity out of the product aggregate
// in the same unit of work before the row disappears.
func (s *Service) DeleteBatch(ctx context.Context, batchID id.ID) error {
	if err := s.repo.Delete(ctx, batchID); err != nil {
		return err
	}

	logger.Info(ctx, "batch deleted", "batch_id", batchID)
	return nil
}
