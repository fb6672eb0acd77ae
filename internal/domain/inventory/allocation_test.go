package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/batch"
)

func testBatch(productID id.ID, remaining string, cost string, purchaseDate time.Time) batch.Batch {
	return batch.Batch{
		ID:                id.New(),
		ProductID:         productID,
		UnitCost:          types.MustMoney(cost),
		QuantityPurchased: types.MustQuantity(remaining),
		QuantityRemaining: types.MustQuantity(remaining),
		PurchaseDate:      purchaseDate,
		CreatedAt:         time.Now().UTC(),
	}
}

func TestAllocate_FIFOOrder(t *testing.T) {
	productID := id.New()
	day1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	b1 := testBatch(productID, "10", "5", day1)
	b2 := testBatch(productID, "10", "7", day2)

	// Pass newest first; the allocator must still walk oldest first.
	allocations, err := allocate(productID, []batch.Batch{b2, b1}, types.MustQuantity("15"))
	require.NoError(t, err)
	require.Len(t, allocations, 2)

	assert.Equal(t, b1.ID, allocations[0].BatchID)
	assert.Equal(t, types.MustQuantity("10"), allocations[0].Quantity)
	assert.True(t, allocations[0].UnitCost.Equal(types.MustMoney("5")))

	assert.Equal(t, b2.ID, allocations[1].BatchID)
	assert.Equal(t, types.MustQuantity("5"), allocations[1].Quantity)
	assert.True(t, allocations[1].UnitCost.Equal(types.MustMoney("7")))
}

func TestAllocate_TieBreakByID(t *testing.T) {
	productID := id.New()
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	b1 := testBatch(productID, "5", "5", day)
	b2 := testBatch(productID, "5", "6", day)

	// Same purchase date: the smaller id wins. UUIDv7 generation order makes
	// b1 < b2, but assert on the actual comparison rather than assume.
	first, second := b1, b2
	if b2.ID.String() < b1.ID.String() {
		first, second = b2, b1
	}

	for _, input := range [][]batch.Batch{{b1, b2}, {b2, b1}} {
		allocations, err := allocate(productID, input, types.MustQuantity("7"))
		require.NoError(t, err)
		require.Len(t, allocations, 2)
		assert.Equal(t, first.ID, allocations[0].BatchID)
		assert.Equal(t, types.MustQuantity("5"), allocations[0].Quantity)
		assert.Equal(t, second.ID, allocations[1].BatchID)
		assert.Equal(t, types.MustQuantity("2"), allocations[1].Quantity)
	}
}

func TestAllocate_ExactFit(t *testing.T) {
	productID := id.New()
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	b := testBatch(productID, "12", "3", day)

	allocations, err := allocate(productID, []batch.Batch{b}, types.MustQuantity("12"))
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	assert.Equal(t, types.MustQuantity("12"), allocations[0].Quantity)
}

func TestAllocate_InsufficientStock(t *testing.T) {
	productID := id.New()
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	batches := []batch.Batch{
		testBatch(productID, "7", "3", day),
		testBatch(productID, "5", "4", day.AddDate(0, 0, 1)),
	}

	allocations, err := allocate(productID, batches, types.MustQuantity("13"))
	require.Error(t, err)
	assert.Nil(t, allocations)
	assert.True(t, apperror.IsInsufficientStock(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "13.0000", appErr.Details["requested"])
	assert.Equal(t, "12.0000", appErr.Details["available"])
}

func TestAllocate_FractionalQuantities(t *testing.T) {
	productID := id.New()
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	b1 := testBatch(productID, "2.5", "3", day)
	b2 := testBatch(productID, "2.5", "3", day.AddDate(0, 0, 1))

	allocations, err := allocate(productID, []batch.Batch{b1, b2}, types.MustQuantity("3.75"))
	require.NoError(t, err)
	require.Len(t, allocations, 2)
	assert.Equal(t, types.MustQuantity("2.5"), allocations[0].Quantity)
	assert.Equal(t, types.MustQuantity("1.25"), allocations[1].Quantity)
}

func TestAllocate_SkipsInactiveBatches(t *testing.T) {
	productID := id.New()
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	drained := testBatch(productID, "10", "5", day)
	drained.QuantityRemaining = 0
	live := testBatch(productID, "10", "6", day.AddDate(0, 0, 1))

	allocations, err := allocate(productID, []batch.Batch{drained, live}, types.MustQuantity("4"))
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	assert.Equal(t, live.ID, allocations[0].BatchID)
}
