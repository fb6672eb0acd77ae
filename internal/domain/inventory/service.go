// Package inventory provides the batch consumption engine.
// Every public operation runs as one atomic unit of work over a single
// product's batches, movements and aggregate counter: either all writes
// commit or none do.
package inventory

import (
	"context"
	"fmt"
	"time"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/tx"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/batch"
	"stocklot/internal/domain/movement"
	"stocklot/internal/domain/product"
	"stocklot/pkg/logger"
)

// maxConflictRetries bounds transparent retries of a unit of work that
// failed on a write conflict before CONCURRENT_MODIFICATION surfaces.
const maxConflictRetries = 3

// Engine coordinates the batch ledger, the movement recorder and the
// aggregate stock counter. Repositories and the unit-of-work manager are
// injected; the engine never reaches for ambient global state.
type Engine struct {
	batches   batch.Repository
	products  product.Repository
	movements movement.Repository
	txm       tx.Manager
}

// NewEngine creates a consumption engine.
func NewEngine(batches batch.Repository, products product.Repository, movements movement.Repository, txm tx.Manager) *Engine {
	return &Engine{
		batches:   batches,
		products:  products,
		movements: movements,
		txm:       txm,
	}
}

// InboundRequest describes a purchase receipt.
type InboundRequest struct {
	ProductID    id.ID
	Quantity     types.Quantity
	UnitCost     types.Money
	PurchaseDate time.Time
	SupplierID   *id.ID
	ExpiryDate   *time.Time
	Note         *string
}

// InboundResult is the outcome of RecordInbound.
type InboundResult struct {
	Batch    *batch.Batch
	Movement *movement.ProductMovement
}

// OutboundRequest describes a stock withdrawal (sale, write-off).
type OutboundRequest struct {
	ProductID id.ID
	Quantity  types.Quantity
	Note      *string
}

// ConsumeResult is the outcome of RecordOutbound: one summary movement plus
// the per-batch split of the withdrawal.
type ConsumeResult struct {
	Movement    *movement.ProductMovement
	Allocations []Allocation
}

// AdjustmentRequest describes a signed correction on one batch.
type AdjustmentRequest struct {
	BatchID id.ID
	Delta   types.Quantity
	Note    *string
}

// AdjustmentResult is the outcome of RecordAdjustment.
type AdjustmentResult struct {
	Batch    *batch.Batch
	Movement *movement.ProductMovement
}

// RecordInbound receives a purchase batch: creates the batch, increments the
// product aggregate and appends the INBOUND summary movement, atomically.
func (e *Engine) RecordInbound(ctx context.Context, req InboundRequest) (*InboundResult, error) {
	if !req.Quantity.IsPositive() {
		return nil, apperror.NewValidation("inbound quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("value", req.Quantity.String())
	}
	if req.UnitCost.IsNegative() {
		return nil, apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "unitCost").
			WithDetail("value", req.UnitCost.String())
	}

	var result InboundResult
	err := e.runWrite(ctx, "product", req.ProductID, func(ctx context.Context) error {
		if _, err := e.products.GetByID(ctx, req.ProductID); err != nil {
			return err
		}

		b := batch.New(req.ProductID, req.UnitCost, req.Quantity, req.PurchaseDate, req.SupplierID, req.ExpiryDate)
		if err := b.Validate(ctx); err != nil {
			return err
		}
		if err := e.batches.Create(ctx, b); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}

		if err := e.syncAggregate(ctx, req.ProductID, movement.KindInbound, req.Quantity); err != nil {
			return err
		}

		m := movement.NewProductMovement(req.ProductID, movement.KindInbound, req.Quantity, req.Note)
		if err := e.movements.AppendProduct(ctx, m); err != nil {
			return fmt.Errorf("append product movement: %w", err)
		}

		result.Batch = b
		result.Movement = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "inbound recorded",
		"product_id", req.ProductID,
		"batch_id", result.Batch.ID,
		"quantity", req.Quantity.String(),
	)
	return &result, nil
}

// RecordOutbound withdraws stock FIFO across active batches.
//
// The active batch rows are read under row locks, so two concurrent
// withdrawals of the same product serialize instead of both allocating the
// same remaining quantity. A request the active batches cannot cover fails
// with INSUFFICIENT_STOCK and commits nothing.
//
// A zero or negative quantity is rejected as invalid input.
func (e *Engine) RecordOutbound(ctx context.Context, req OutboundRequest) (*ConsumeResult, error) {
	if !req.Quantity.IsPositive() {
		return nil, apperror.NewValidation("outbound quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("value", req.Quantity.String())
	}

	var result ConsumeResult
	err := e.runWrite(ctx, "product", req.ProductID, func(ctx context.Context) error {
		if _, err := e.products.GetByID(ctx, req.ProductID); err != nil {
			return err
		}

		active, err := e.batches.ListActiveForUpdate(ctx, req.ProductID)
		if err != nil {
			return fmt.Errorf("list active batches: %w", err)
		}

		allocations, err := allocate(req.ProductID, active, req.Quantity)
		if err != nil {
			return err
		}

		for _, a := range allocations {
			if _, err := e.batches.AdjustRemaining(ctx, a.BatchID, a.Quantity.Neg()); err != nil {
				return fmt.Errorf("consume batch %s: %w", a.BatchID, err)
			}
			bm := movement.NewBatchMovement(a.BatchID, movement.KindOutbound, a.Quantity)
			if err := e.movements.AppendBatch(ctx, bm); err != nil {
				return fmt.Errorf("append batch movement: %w", err)
			}
		}

		if err := e.syncAggregate(ctx, req.ProductID, movement.KindOutbound, req.Quantity); err != nil {
			return err
		}

		m := movement.NewProductMovement(req.ProductID, movement.KindOutbound, req.Quantity, req.Note)
		if err := e.movements.AppendProduct(ctx, m); err != nil {
			return fmt.Errorf("append product movement: %w", err)
		}

		result.Movement = m
		result.Allocations = allocations
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "outbound recorded",
		"product_id", req.ProductID,
		"quantity", req.Quantity.String(),
		"batches_touched", len(result.Allocations),
	)
	return &result, nil
}

// RecordAdjustment applies a signed correction to one batch, keeping the
// aggregate and both movement levels in step. A delta that would drive the
// batch below zero fails with NEGATIVE_STOCK; nothing is clamped.
func (e *Engine) RecordAdjustment(ctx context.Context, req AdjustmentRequest) (*AdjustmentResult, error) {
	if req.Delta.IsZero() {
		return nil, apperror.NewValidation("adjustment delta cannot be zero").
			WithDetail("field", "delta")
	}

	var result AdjustmentResult
	err := e.runWrite(ctx, "batch", req.BatchID, func(ctx context.Context) error {
		b, err := e.batches.GetByIDForUpdate(ctx, req.BatchID)
		if err != nil {
			return err
		}

		updated, err := e.batches.AdjustRemaining(ctx, req.BatchID, req.Delta)
		if err != nil {
			return err
		}

		if err := e.syncAggregate(ctx, b.ProductID, movement.KindAdjustment, req.Delta); err != nil {
			return err
		}

		bm := movement.NewBatchMovement(req.BatchID, movement.KindAdjustment, req.Delta)
		if err := e.movements.AppendBatch(ctx, bm); err != nil {
			return fmt.Errorf("append batch movement: %w", err)
		}

		m := movement.NewProductMovement(b.ProductID, movement.KindAdjustment, req.Delta, req.Note)
		if err := e.movements.AppendProduct(ctx, m); err != nil {
			return fmt.Errorf("append product movement: %w", err)
		}

		result.Batch = updated
		result.Movement = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "adjustment recorded",
		"batch_id", req.BatchID,
		"delta", req.Delta.String(),
	)
	return &result, nil
}

// DeleteBatch administratively removes a batch. Whatever quantity the batch
// still held is reversed out of the product aggregate, with an ADJUSTMENT
// movement as the audit trail, before the row disappears.
func (e *Engine) DeleteBatch(ctx context.Context, batchID id.ID) error {
	err := e.runWrite(ctx, "batch", batchID, func(ctx context.Context) error {
		b, err := e.batches.GetByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}

		if b.QuantityRemaining.IsPositive() {
			if err := e.syncAggregate(ctx, b.ProductID, movement.KindAdjustment, b.QuantityRemaining.Neg()); err != nil {
				return err
			}

			note := fmt.Sprintf("batch %s deleted", b.ID)
			m := movement.NewProductMovement(b.ProductID, movement.KindAdjustment, b.QuantityRemaining.Neg(), &note)
			if err := e.movements.AppendProduct(ctx, m); err != nil {
				return fmt.Errorf("append product movement: %w", err)
			}
		}

		if err := e.batches.Delete(ctx, batchID); err != nil {
			return fmt.Errorf("delete batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "batch deleted", "batch_id", batchID)
	return nil
}

// syncAggregate keeps product.Stock equal to the sum of the product's
// batches' remaining quantities. The movement kind decides the sign of the
// applied delta; it is never called outside a unit of work.
func (e *Engine) syncAggregate(ctx context.Context, productID id.ID, kind movement.Kind, quantity types.Quantity) error {
	delta, err := kind.AggregateDelta(quantity)
	if err != nil {
		return err
	}
	if _, err := e.products.AdjustStock(ctx, productID, delta); err != nil {
		return fmt.Errorf("adjust aggregate stock: %w", err)
	}
	return nil
}

// runWrite executes fn as one unit of work, transparently retrying a bounded
// number of times when the storage layer reports a write conflict.
func (e *Engine) runWrite(ctx context.Context, entity string, entityID id.ID, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		err = e.txm.RunInTransaction(ctx, fn)
		if !apperror.IsConcurrentModification(err) {
			return err
		}
		logger.Warn(ctx, "write conflict, retrying unit of work",
			"entity", entity,
			"id", entityID,
			"attempt", attempt+1,
		)
	}
	return apperror.NewConcurrentModification(entity, entityID).WithCause(err)
}
