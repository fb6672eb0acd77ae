package inventory

import (
	"context"
	"sort"
	"sync"
	"time"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/batch"
	"stocklot/internal/domain/movement"
	"stocklot/internal/domain/product"
)

// memStore is an in-memory stand-in for the Postgres repositories. The fake
// tx manager serializes units of work with a mutex and restores a snapshot
// on error, which is enough to exercise the engine's all-or-nothing and
// lost-update behavior without a database.
type memStore struct {
	mu sync.Mutex

	products  map[id.ID]product.Product
	batches   map[id.ID]batch.Batch
	prodMovs  []movement.ProductMovement
	batchMovs []movement.BatchMovement
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[id.ID]product.Product),
		batches:  make(map[id.ID]batch.Batch),
	}
}

func (s *memStore) snapshot() *memStore {
	snap := newMemStore()
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.batches {
		snap.batches[k] = v
	}
	snap.prodMovs = append([]movement.ProductMovement(nil), s.prodMovs...)
	snap.batchMovs = append([]movement.BatchMovement(nil), s.batchMovs...)
	return snap
}

func (s *memStore) restore(snap *memStore) {
	s.products = snap.products
	s.batches = snap.batches
	s.prodMovs = snap.prodMovs
	s.batchMovs = snap.batchMovs
}

// memTxManager serializes units of work and rolls back on error.
type memTxManager struct {
	store *memStore
}

func (m *memTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	snap := m.store.snapshot()
	if err := fn(ctx); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

func (m *memTxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return fn(ctx)
}

// --- batch.Repository ---

type memBatchRepo struct {
	store *memStore
}

func (r *memBatchRepo) Create(ctx context.Context, b *batch.Batch) error {
	r.store.batches[b.ID] = *b
	return nil
}

func (r *memBatchRepo) GetByID(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	b, ok := r.store.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("batch", batchID)
	}
	return &b, nil
}

func (r *memBatchRepo) GetByIDForUpdate(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	return r.GetByID(ctx, batchID)
}

func (r *memBatchRepo) ListActive(ctx context.Context, productID id.ID) ([]batch.Batch, error) {
	var out []batch.Batch
	for _, b := range r.store.batches {
		if b.ProductID == productID && b.Active() {
			out = append(out, b)
		}
	}
	sortConsumptionOrder(out)
	return out, nil
}

func (r *memBatchRepo) ListActiveForUpdate(ctx context.Context, productID id.ID) ([]batch.Batch, error) {
	return r.ListActive(ctx, productID)
}

func (r *memBatchRepo) ListByProduct(ctx context.Context, productID id.ID) ([]batch.Batch, error) {
	var out []batch.Batch
	for _, b := range r.store.batches {
		if b.ProductID == productID {
			out = append(out, b)
		}
	}
	sortConsumptionOrder(out)
	return out, nil
}

func (r *memBatchRepo) ListActiveAll(ctx context.Context) ([]batch.Batch, error) {
	var out []batch.Batch
	for _, b := range r.store.batches {
		if b.Active() {
			out = append(out, b)
		}
	}
	sortConsumptionOrder(out)
	return out, nil
}

func (r *memBatchRepo) ListExpiring(ctx context.Context, filter batch.ExpiryFilter) ([]batch.Batch, error) {
	now := time.Now()
	var out []batch.Batch
	for _, b := range r.store.batches {
		if !b.Active() || b.ExpiryDate == nil {
			continue
		}
		if filter.ProductID != nil && b.ProductID != *filter.ProductID {
			continue
		}
		if b.ExpiresWithin(now, filter.HorizonOrDefault()) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(*out[j].ExpiryDate) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memBatchRepo) AdjustRemaining(ctx context.Context, batchID id.ID, delta types.Quantity) (*batch.Batch, error) {
	b, ok := r.store.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("batch", batchID)
	}
	next := b.QuantityRemaining + delta
	if next.IsNegative() {
		return nil, apperror.NewNegativeStock(batchID.String(), b.QuantityRemaining.String(), delta.String())
	}
	b.QuantityRemaining = next
	r.store.batches[batchID] = b
	return &b, nil
}

func (r *memBatchRepo) Delete(ctx context.Context, batchID id.ID) error {
	if _, ok := r.store.batches[batchID]; !ok {
		return apperror.NewNotFound("batch", batchID)
	}
	delete(r.store.batches, batchID)
	return nil
}

func sortConsumptionOrder(batches []batch.Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].ConsumesBefore(&batches[j])
	})
}

// --- product.Repository ---

type memProductRepo struct {
	store *memStore
}

func (r *memProductRepo) Create(ctx context.Context, p *product.Product) error {
	r.store.products[p.ID] = *p
	return nil
}

func (r *memProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	p, ok := r.store.products[productID]
	if !ok || p.DeletionMark {
		return nil, apperror.NewNotFound("product", productID)
	}
	return &p, nil
}

func (r *memProductRepo) List(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	var out []product.Product
	for _, p := range r.store.products {
		if !p.DeletionMark {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memProductRepo) ListLowStock(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	all, _ := r.List(ctx, filter)
	var out []product.Product
	for _, p := range all {
		if p.BelowMinimum() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProductRepo) AdjustStock(ctx context.Context, productID id.ID, delta types.Quantity) (*product.Product, error) {
	p, ok := r.store.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	next := p.Stock + delta
	if next.IsNegative() {
		return nil, apperror.NewNegativeStock(productID.String(), p.Stock.String(), delta.String())
	}
	p.Stock = next
	p.Version++
	r.store.products[productID] = p
	return &p, nil
}

// --- movement.Repository ---

type memMovementRepo struct {
	store *memStore
}

func (r *memMovementRepo) AppendProduct(ctx context.Context, m *movement.ProductMovement) error {
	r.store.prodMovs = append(r.store.prodMovs, *m)
	return nil
}

func (r *memMovementRepo) AppendBatch(ctx context.Context, m *movement.BatchMovement) error {
	r.store.batchMovs = append(r.store.batchMovs, *m)
	return nil
}

func (r *memMovementRepo) ListByProduct(ctx context.Context, productID id.ID, filter movement.Filter) ([]movement.ProductMovement, error) {
	var out []movement.ProductMovement
	// Insertion order is chronological; walk backwards for newest first.
	for i := len(r.store.prodMovs) - 1; i >= 0; i-- {
		m := r.store.prodMovs[i]
		if m.ProductID != productID {
			continue
		}
		if filter.Kind != nil && m.Kind != *filter.Kind {
			continue
		}
		out = append(out, m)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memMovementRepo) ListAll(ctx context.Context, filter movement.Filter) ([]movement.ProductMovement, error) {
	var out []movement.ProductMovement
	for i := len(r.store.prodMovs) - 1; i >= 0; i-- {
		m := r.store.prodMovs[i]
		if filter.Kind != nil && m.Kind != *filter.Kind {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *memMovementRepo) ListByBatch(ctx context.Context, batchID id.ID, filter movement.Filter) ([]movement.BatchMovement, error) {
	var out []movement.BatchMovement
	for i := len(r.store.batchMovs) - 1; i >= 0; i-- {
		m := r.store.batchMovs[i]
		if m.BatchID == batchID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMovementRepo) Turnover(ctx context.Context, productID id.ID, from, to time.Time) (movement.Turnover, error) {
	result := movement.Turnover{ProductID: productID}
	for _, m := range r.store.prodMovs {
		if m.ProductID != productID || m.CreatedAt.Before(from) || !m.CreatedAt.Before(to) {
			continue
		}
		switch m.Kind {
		case movement.KindInbound:
			result.Inbound += m.Quantity
		case movement.KindOutbound:
			result.Outbound += m.Quantity
		case movement.KindAdjustment:
			result.Adjustment += m.Quantity
		}
	}
	result.Net = result.Inbound - result.Outbound + result.Adjustment
	return result, nil
}

// --- fixture ---

type fixture struct {
	store     *memStore
	batches   *memBatchRepo
	products  *memProductRepo
	movements *memMovementRepo
	txm       *memTxManager
	engine    *Engine
}

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{
		store:     store,
		batches:   &memBatchRepo{store: store},
		products:  &memProductRepo{store: store},
		movements: &memMovementRepo{store: store},
		txm:       &memTxManager{store: store},
	}
	f.engine = NewEngine(f.batches, f.products, f.movements, f.txm)
	return f
}

func (f *fixture) addProduct(code string) id.ID {
	p := product.New(code, "product "+code, 0)
	f.store.products[p.ID] = *p
	return p.ID
}

// batchTotal sums remaining quantity over a product's batches.
func (f *fixture) batchTotal(productID id.ID) types.Quantity {
	var total types.Quantity
	for _, b := range f.store.batches {
		if b.ProductID == productID {
			total += b.QuantityRemaining
		}
	}
	return total
}

func (f *fixture) productStock(productID id.ID) types.Quantity {
	return f.store.products[productID].Stock
}
