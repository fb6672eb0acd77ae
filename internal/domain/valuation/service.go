// Package valuation derives inventory cost figures from current batch state.
// Pure read side: no stored state of its own, no write transactions.
package valuation

import (
	"context"
	"fmt"

	"stocklot/internal/core/id"
	"stocklot/internal/core/tx"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/batch"
	"stocklot/internal/domain/product"
)

// ProductValuation is the cost picture for one product.
type ProductValuation struct {
	ProductID id.ID `json:"productId"`

	// AverageCost is the quantity-weighted mean unit cost across active
	// batches. Zero when no batch is active.
	AverageCost types.Money `json:"averageCost"`

	// TotalValue is sum(remaining x unit cost) over active batches.
	TotalValue types.Money `json:"totalValue"`

	// ActiveBatches is how many batches still hold stock.
	ActiveBatches int `json:"activeBatches"`
}

// FleetValuation aggregates inventory value across the whole catalog.
type FleetValuation struct {
	TotalValue   types.Money `json:"totalValue"`
	BatchCount   int         `json:"batchCount"`
	ProductCount int         `json:"productCount"`
}

// Service computes valuations from batch state.
type Service struct {
	batches  batch.Repository
	products product.Repository
	txm      tx.ReadOnlyManager
}

// NewService creates a valuation service.
func NewService(batches batch.Repository, products product.Repository, txm tx.ReadOnlyManager) *Service {
	return &Service{
		batches:  batches,
		products: products,
		txm:      txm,
	}
}

// GetValuation returns weighted-average cost and total value for a product.
// Runs against a read-only snapshot so the sum and the average see the same
// batch state.
func (s *Service) GetValuation(ctx context.Context, productID id.ID) (*ProductValuation, error) {
	var result *ProductValuation
	err := s.txm.ReadOnly(ctx, func(ctx context.Context) error {
		if _, err := s.products.GetByID(ctx, productID); err != nil {
			return err
		}

		active, err := s.batches.ListActive(ctx, productID)
		if err != nil {
			return fmt.Errorf("list active batches: %w", err)
		}

		result = valueBatches(productID, active)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetFleetValuation totals inventory value across every product.
func (s *Service) GetFleetValuation(ctx context.Context) (*FleetValuation, error) {
	var result *FleetValuation
	err := s.txm.ReadOnly(ctx, func(ctx context.Context) error {
		active, err := s.batches.ListActiveAll(ctx)
		if err != nil {
			return fmt.Errorf("list active batches: %w", err)
		}

		total := types.ZeroMoney()
		seen := make(map[id.ID]struct{})
		for i := range active {
			total = total.Add(active[i].Value())
			seen[active[i].ProductID] = struct{}{}
		}

		result = &FleetValuation{
			TotalValue:   total,
			BatchCount:   len(active),
			ProductCount: len(seen),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// valueBatches folds active batches into a valuation.
// avg = sum(remaining x cost) / sum(remaining); zero when nothing is active.
func valueBatches(productID id.ID, active []batch.Batch) *ProductValuation {
	v := &ProductValuation{
		ProductID:   productID,
		AverageCost: types.ZeroMoney(),
		TotalValue:  types.ZeroMoney(),
	}

	var totalQty types.Quantity
	for i := range active {
		b := &active[i]
		if !b.Active() {
			continue
		}
		v.TotalValue = v.TotalValue.Add(b.Value())
		totalQty += b.QuantityRemaining
		v.ActiveBatches++
	}

	if totalQty.IsPositive() {
		v.AverageCost = v.TotalValue.Div(totalQty.Decimal())
	}

	return v
}
