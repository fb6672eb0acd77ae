package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/product"
)

const productsTable = "cat_products"

var productColumns = ExtractDBColumns[product.Product]()

// ProductRepo implements product.Repository.
type ProductRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewProductRepo creates a new product catalog repository.
func NewProductRepo(txm *TxManager) *ProductRepo {
	return &ProductRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new product.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	q := r.builder.Insert(productsTable).
		SetMap(StructToMap(p))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productID, "deletion_mark": false})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// List returns products ordered by code.
func (r *ProductRepo) List(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	q := r.listQuery(filter)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []product.Product
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &products, sql, args...); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	return products, nil
}

// ListLowStock returns products whose aggregate is below their minimum.
func (r *ProductRepo) ListLowStock(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	q := r.listQuery(filter).Where("stock < minimum_stock")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []product.Product
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &products, sql, args...); err != nil {
		return nil, fmt.Errorf("select low stock products: %w", err)
	}
	return products, nil
}

func (r *ProductRepo) listQuery(filter product.ListFilter) squirrel.SelectBuilder {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("code ASC")

	if filter.Search != "" {
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": "%" + filter.Search + "%"},
			squirrel.ILike{"code": "%" + filter.Search + "%"},
		})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

// AdjustStock applies a signed delta to the aggregate stock counter.
// The guard mirrors the batch-level one: the counter can never go negative,
// which would mean batches and aggregate have drifted apart.
func (r *ProductRepo) AdjustStock(ctx context.Context, productID id.ID, delta types.Quantity) (*product.Product, error) {
	sql := `
		UPDATE cat_products
		SET stock = stock + $1,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $2 AND stock + $1 >= 0
		RETURNING id, code, name, stock, minimum_stock,
		          deletion_mark, version, created_at, updated_at
	`

	var p product.Product
	err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, delta, productID)
	if err == nil {
		return &p, nil
	}
	if !pgxscan.NotFound(err) {
		return nil, fmt.Errorf("adjust product stock: %w", err)
	}

	existing, getErr := r.GetByID(ctx, productID)
	if getErr != nil {
		return nil, getErr
	}
	return nil, apperror.NewNegativeStock(
		productID.String(),
		existing.Stock.String(),
		delta.String(),
	)
}

// Ensure interface compliance.
var _ product.Repository = (*ProductRepo)(nil)
