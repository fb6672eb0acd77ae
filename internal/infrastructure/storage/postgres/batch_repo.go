package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/batch"
)

const batchesTable = "inv_batches"

var batchColumns = ExtractDBColumns[batch.Batch]()

// BatchRepo implements batch.Repository.
type BatchRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewBatchRepo creates a new batch ledger repository.
func NewBatchRepo(txm *TxManager) *BatchRepo {
	return &BatchRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new batch.
func (r *BatchRepo) Create(ctx context.Context, b *batch.Batch) error {
	q := r.builder.Insert(batchesTable).
		SetMap(StructToMap(b))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// GetByID retrieves a batch.
func (r *BatchRepo) GetByID(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	return r.getByID(ctx, batchID, false)
}

// GetByIDForUpdate retrieves a batch with a row lock.
func (r *BatchRepo) GetByIDForUpdate(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	return r.getByID(ctx, batchID, true)
}

func (r *BatchRepo) getByID(ctx context.Context, batchID id.ID, forUpdate bool) (*batch.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"id": batchID})

	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b batch.Batch
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("batch", batchID)
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

// ListActive returns active batches in consumption order.
func (r *BatchRepo) ListActive(ctx context.Context, productID id.ID) ([]batch.Batch, error) {
	return r.listActive(ctx, productID, false)
}

// ListActiveForUpdate returns active batches in consumption order, locking
// every returned row for the duration of the unit of work. Concurrent
// withdrawals of the same product queue here instead of both reading the
// same remaining quantities.
func (r *BatchRepo) ListActiveForUpdate(ctx context.Context, productID id.ID) ([]batch.Batch, error) {
	return r.listActive(ctx, productID, true)
}

func (r *BatchRepo) listActive(ctx context.Context, productID id.ID, forUpdate bool) ([]batch.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Gt{"quantity_remaining": int64(0)}).
		OrderBy("purchase_date ASC", "id ASC")

	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []batch.Batch
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("select active batches: %w", err)
	}
	return batches, nil
}

// ListByProduct returns all batches for a product, consumed ones included.
func (r *BatchRepo) ListByProduct(ctx context.Context, productID id.ID) ([]batch.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("purchase_date ASC", "id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []batch.Batch
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("select batches: %w", err)
	}
	return batches, nil
}

// ListActiveAll returns every active batch across products.
func (r *BatchRepo) ListActiveAll(ctx context.Context) ([]batch.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Gt{"quantity_remaining": int64(0)}).
		OrderBy("product_id ASC", "purchase_date ASC", "id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []batch.Batch
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("select active batches: %w", err)
	}
	return batches, nil
}

// ListExpiring returns active batches with an expiry date inside the
// filter's horizon, soonest first.
func (r *BatchRepo) ListExpiring(ctx context.Context, filter batch.ExpiryFilter) ([]batch.Batch, error) {
	deadline := time.Now().UTC().Add(filter.HorizonOrDefault())

	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Gt{"quantity_remaining": int64(0)}).
		Where("expiry_date IS NOT NULL").
		Where(squirrel.Lt{"expiry_date": deadline}).
		OrderBy("expiry_date ASC")

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []batch.Batch
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("select expiring batches: %w", err)
	}
	return batches, nil
}

// AdjustRemaining applies a signed delta with a non-negativity guard in the
// UPDATE itself: the row is only written when the result stays >= 0, so the
// guard and the write are one atomic statement.
func (r *BatchRepo) AdjustRemaining(ctx context.Context, batchID id.ID, delta types.Quantity) (*batch.Batch, error) {
	sql := `
		UPDATE inv_batches
		SET quantity_remaining = quantity_remaining + $1
		WHERE id = $2 AND quantity_remaining + $1 >= 0
		RETURNING id, product_id, supplier_id, unit_cost,
		          quantity_purchased, quantity_remaining,
		          purchase_date, expiry_date, created_at
	`

	var b batch.Batch
	err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &b, sql, delta, batchID)
	if err == nil {
		return &b, nil
	}
	if !pgxscan.NotFound(err) {
		return nil, fmt.Errorf("adjust batch quantity: %w", err)
	}

	// No row updated: distinguish a missing batch from a guard rejection.
	existing, getErr := r.GetByID(ctx, batchID)
	if getErr != nil {
		return nil, getErr
	}
	return nil, apperror.NewNegativeStock(
		batchID.String(),
		existing.QuantityRemaining.String(),
		delta.String(),
	)
}

// Delete removes the batch row.
func (r *BatchRepo) Delete(ctx context.Context, batchID id.ID) error {
	q := r.builder.Delete(batchesTable).
		Where(squirrel.Eq{"id": batchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", batchID)
	}
	return nil
}

// Ensure interface compliance.
var _ batch.Repository = (*BatchRepo)(nil)
