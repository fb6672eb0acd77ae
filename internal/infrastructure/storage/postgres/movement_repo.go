package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/movement"
)

const (
	productMovementsTable = "inv_product_movements"
	batchMovementsTable   = "inv_batch_movements"
)

var (
	productMovementColumns = ExtractDBColumns[movement.ProductMovement]()
	batchMovementColumns   = ExtractDBColumns[movement.BatchMovement]()
)

// MovementRepo implements movement.Repository.
// Inserts only; the tables have no UPDATE or DELETE path in this codebase.
type MovementRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewMovementRepo creates a new movement ledger repository.
func NewMovementRepo(txm *TxManager) *MovementRepo {
	return &MovementRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// AppendProduct inserts a product-level entry.
func (r *MovementRepo) AppendProduct(ctx context.Context, m *movement.ProductMovement) error {
	q := r.builder.Insert(productMovementsTable).
		SetMap(StructToMap(m))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert product movement: %w", err)
	}
	return nil
}

// AppendBatch inserts a batch-level entry.
func (r *MovementRepo) AppendBatch(ctx context.Context, m *movement.BatchMovement) error {
	q := r.builder.Insert(batchMovementsTable).
		SetMap(StructToMap(m))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert batch movement: %w", err)
	}
	return nil
}

// ListByProduct returns product movements newest first.
func (r *MovementRepo) ListByProduct(ctx context.Context, productID id.ID, filter movement.Filter) ([]movement.ProductMovement, error) {
	q := r.productListQuery(filter).
		Where(squirrel.Eq{"product_id": productID})
	return r.selectProductMovements(ctx, q)
}

// ListAll returns product movements across all products newest first.
func (r *MovementRepo) ListAll(ctx context.Context, filter movement.Filter) ([]movement.ProductMovement, error) {
	return r.selectProductMovements(ctx, r.productListQuery(filter))
}

func (r *MovementRepo) productListQuery(filter movement.Filter) squirrel.SelectBuilder {
	q := r.builder.Select(productMovementColumns...).
		From(productMovementsTable).
		OrderBy("created_at DESC", "id DESC")

	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.ToDate})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

func (r *MovementRepo) selectProductMovements(ctx context.Context, q squirrel.SelectBuilder) ([]movement.ProductMovement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []movement.ProductMovement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select product movements: %w", err)
	}
	return movements, nil
}

// ListByBatch returns batch movements newest first.
func (r *MovementRepo) ListByBatch(ctx context.Context, batchID id.ID, filter movement.Filter) ([]movement.BatchMovement, error) {
	q := r.builder.Select(batchMovementColumns...).
		From(batchMovementsTable).
		Where(squirrel.Eq{"batch_id": batchID}).
		OrderBy("created_at DESC", "id DESC")

	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []movement.BatchMovement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select batch movements: %w", err)
	}
	return movements, nil
}

// Turnover sums movement quantities per kind for a product over [from, to).
func (r *MovementRepo) Turnover(ctx context.Context, productID id.ID, from, to time.Time) (movement.Turnover, error) {
	result := movement.Turnover{ProductID: productID}

	sql := `
		SELECT
			COALESCE(SUM(CASE WHEN kind = 'inbound' THEN quantity ELSE 0 END), 0) AS inbound,
			COALESCE(SUM(CASE WHEN kind = 'outbound' THEN quantity ELSE 0 END), 0) AS outbound,
			COALESCE(SUM(CASE WHEN kind = 'adjustment' THEN quantity ELSE 0 END), 0) AS adjustment
		FROM inv_product_movements
		WHERE product_id = $1 AND created_at >= $2 AND created_at < $3
	`

	var inbound, outbound, adjustment int64
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, productID, from, to).
		Scan(&inbound, &outbound, &adjustment)
	if err != nil && err != pgx.ErrNoRows {
		return result, fmt.Errorf("calculate turnover: %w", err)
	}

	result.Inbound = types.NewQuantityFromInt64Scaled(inbound)
	result.Outbound = types.NewQuantityFromInt64Scaled(outbound)
	result.Adjustment = types.NewQuantityFromInt64Scaled(adjustment)
	result.Net = result.Inbound - result.Outbound + result.Adjustment

	return result, nil
}

// Ensure interface compliance.
var _ movement.Repository = (*MovementRepo)(nil)
