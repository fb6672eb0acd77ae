package product

import (
	"context"
	"fmt"

	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/pkg/logger"
)

// Service provides catalog operations on products.
type Service struct {
	repo Repository
}

// NewService creates a new product service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and persists a new product.
func (s *Service) Create(ctx context.Context, code, name string, minimumStock types.Quantity) (*Product, error) {
	p := New(code, name, minimumStock)
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	logger.Info(ctx, "product created", "product_id", p.ID, "code", p.Code)
	return p, nil
}

// GetByID retrieves a product.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// List returns products ordered by code.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	return s.repo.List(ctx, filter)
}

// ListLowStock returns products under their reorder threshold.
func (s *Service) ListLowStock(ctx context.Context, filter ListFilter) ([]Product, error) {
	return s.repo.ListLowStock(ctx, filter)
}
