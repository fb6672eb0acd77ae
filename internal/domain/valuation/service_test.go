package valuation

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/batch"
	"stocklot/internal/domain/product"
)

// fakeBatches implements batch.Repository over a slice.
type fakeBatches struct {
	items []batch.Batch
}

func (f *fakeBatches) Create(ctx context.Context, b *batch.Batch) error {
	f.items = append(f.items, *b)
	return nil
}

func (f *fakeBatches) GetByID(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	for i := range f.items {
		if f.items[i].ID == batchID {
			b := f.items[i]
			return &b, nil
		}
	}
	return nil, apperror.NewNotFound("batch", batchID)
}

func (f *fakeBatches) GetByIDForUpdate(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	return f.GetByID(ctx, batchID)
}

func (f *fakeBatches) ListActive(ctx context.Context, productID id.ID) ([]batch.Batch, error) {
	var out []batch.Batch
	for _, b := range f.items {
		if b.ProductID == productID && b.Active() {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ConsumesBefore(&out[j]) })
	return out, nil
}

func (f *fakeBatches) ListActiveForUpdate(ctx context.Context, productID id.ID) ([]batch.Batch, error) {
	return f.ListActive(ctx, productID)
}

func (f *fakeBatches) ListByProduct(ctx context.Context, productID id.ID) ([]batch.Batch, error) {
	var out []batch.Batch
	for _, b := range f.items {
		if b.ProductID == productID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBatches) ListActiveAll(ctx context.Context) ([]batch.Batch, error) {
	var out []batch.Batch
	for _, b := range f.items {
		if b.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBatches) ListExpiring(ctx context.Context, filter batch.ExpiryFilter) ([]batch.Batch, error) {
	return nil, nil
}

func (f *fakeBatches) AdjustRemaining(ctx context.Context, batchID id.ID, delta types.Quantity) (*batch.Batch, error) {
	return nil, apperror.NewNotFound("batch", batchID)
}

func (f *fakeBatches) Delete(ctx context.Context, batchID id.ID) error {
	return apperror.NewNotFound("batch", batchID)
}

// fakeProducts implements product.Repository over a map.
type fakeProducts struct {
	items map[id.ID]product.Product
}

func (f *fakeProducts) Create(ctx context.Context, p *product.Product) error {
	f.items[p.ID] = *p
	return nil
}

func (f *fakeProducts) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	p, ok := f.items[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	return &p, nil
}

func (f *fakeProducts) List(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	return nil, nil
}

func (f *fakeProducts) ListLowStock(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	return nil, nil
}

func (f *fakeProducts) AdjustStock(ctx context.Context, productID id.ID, delta types.Quantity) (*product.Product, error) {
	return nil, apperror.NewNotFound("product", productID)
}

// passthroughTx runs callbacks directly, no transaction semantics.
type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passthroughTx) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func setup() (*Service, *fakeBatches, *fakeProducts) {
	batches := &fakeBatches{}
	products := &fakeProducts{items: make(map[id.ID]product.Product)}
	return NewService(batches, products, passthroughTx{}), batches, products
}

func addProduct(products *fakeProducts) id.ID {
	p := product.New("P-001", "product", 0)
	products.items[p.ID] = *p
	return p.ID
}

func addBatch(batches *fakeBatches, productID id.ID, remaining, cost string) {
	b := batch.New(productID, types.MustMoney(cost), types.MustQuantity(remaining),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), nil, nil)
	batches.items = append(batches.items, *b)
}

func TestGetValuation_WeightedAverage(t *testing.T) {
	svc, batches, products := setup()
	productID := addProduct(products)

	// 10 @ 5.00 and 5 @ 7.00: total 85.00, average 85/15.
	addBatch(batches, productID, "10", "5")
	addBatch(batches, productID, "5", "7")

	v, err := svc.GetValuation(context.Background(), productID)
	require.NoError(t, err)

	assert.True(t, v.TotalValue.Equal(types.MustMoney("85")), "total %s", v.TotalValue)
	assert.Equal(t, "5.6667", v.AverageCost.StringFixed(4))
	assert.Equal(t, 2, v.ActiveBatches)
}

func TestGetValuation_PartiallyConsumedBatch(t *testing.T) {
	svc, batches, products := setup()
	productID := addProduct(products)

	// Consumed quantity carries no value: only remaining counts.
	b := batch.New(productID, types.MustMoney("4"), types.MustQuantity("10"),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), nil, nil)
	b.QuantityRemaining = types.MustQuantity("2.5")
	batches.items = append(batches.items, *b)

	v, err := svc.GetValuation(context.Background(), productID)
	require.NoError(t, err)
	assert.True(t, v.TotalValue.Equal(types.MustMoney("10")))
	assert.True(t, v.AverageCost.Equal(types.MustMoney("4")))
	assert.Equal(t, 1, v.ActiveBatches)
}

func TestGetValuation_NoActiveBatches(t *testing.T) {
	svc, batches, products := setup()
	productID := addProduct(products)

	b := batch.New(productID, types.MustMoney("5"), types.MustQuantity("10"),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), nil, nil)
	b.QuantityRemaining = 0
	batches.items = append(batches.items, *b)

	v, err := svc.GetValuation(context.Background(), productID)
	require.NoError(t, err)
	assert.True(t, v.TotalValue.IsZero())
	assert.True(t, v.AverageCost.IsZero(), "no division by zero: average is zero")
	assert.Equal(t, 0, v.ActiveBatches)
}

func TestGetValuation_UnknownProduct(t *testing.T) {
	svc, _, _ := setup()

	_, err := svc.GetValuation(context.Background(), id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestGetFleetValuation(t *testing.T) {
	svc, batches, products := setup()
	p1 := addProduct(products)
	p2 := addProduct(products)

	addBatch(batches, p1, "10", "5") // 50
	addBatch(batches, p1, "5", "7")  // 35
	addBatch(batches, p2, "2", "10") // 20

	drained := batch.New(p2, types.MustMoney("3"), types.MustQuantity("4"),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), nil, nil)
	drained.QuantityRemaining = 0
	batches.items = append(batches.items, *drained)

	v, err := svc.GetFleetValuation(context.Background())
	require.NoError(t, err)
	assert.True(t, v.TotalValue.Equal(types.MustMoney("105")), "total %s", v.TotalValue)
	assert.Equal(t, 3, v.BatchCount)
	assert.Equal(t, 2, v.ProductCount)
}

func TestGetFleetValuation_Empty(t *testing.T) {
	svc, _, _ := setup()

	v, err := svc.GetFleetValuation(context.Background())
	require.NoError(t, err)
	assert.True(t, v.TotalValue.IsZero())
	assert.Equal(t, 0, v.BatchCount)
	assert.Equal(t, 0, v.ProductCount)
}
