package inventory

import (
	"sort"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/batch"
)

// Allocation records how much of a withdrawal one batch satisfied.
type Allocation struct {
	BatchID  id.ID          `json:"batchId"`
	Quantity types.Quantity `json:"quantity"`
	UnitCost types.Money    `json:"unitCost"`
}

// allocate distributes a requested withdrawal across active batches,
// oldest purchase first, ties broken by batch id ascending.
//
// The function is pure: it never touches storage, so the walk can be tested
// exhaustively without a database. When the active batches cannot cover the
// request, no partial result is returned.
func allocate(productID id.ID, batches []batch.Batch, requested types.Quantity) ([]Allocation, error) {
	var available types.Quantity
	for i := range batches {
		available += batches[i].QuantityRemaining
	}
	if available < requested {
		return nil, apperror.NewInsufficientStock(
			productID.String(),
			requested.String(),
			available.String(),
		)
	}

	// Repositories return batches already in consumption order; sorting again
	// keeps the walk deterministic for any caller.
	ordered := make([]batch.Batch, len(batches))
	copy(ordered, batches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ConsumesBefore(&ordered[j])
	})

	allocations := make([]Allocation, 0, len(ordered))
	remaining := requested
	for i := range ordered {
		if remaining.IsZero() {
			break
		}
		b := &ordered[i]
		if !b.Active() {
			continue
		}

		take := b.QuantityRemaining.Min(remaining)
		allocations = append(allocations, Allocation{
			BatchID:  b.ID,
			Quantity: take,
			UnitCost: b.UnitCost,
		})
		remaining -= take
	}

	return allocations, nil
}
