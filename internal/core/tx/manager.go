// Package tx provides transaction management abstractions.
// This package defines interfaces that decouple domain logic from specific
// database implementations, so the consumption engine can run unchanged
// against Postgres or an in-memory fake in tests.
package tx

import (
	"context"
)

// Manager defines the contract for unit-of-work management.
// Implementations handle BEGIN, COMMIT, ROLLBACK, and nested reuse.
//
// Domain services depend on this interface, not concrete implementations.
// The Postgres implementation lives in infrastructure/storage/postgres.
type Manager interface {
	// RunInTransaction executes fn within a unit of work.
	// If fn returns an error, every write performed so far is rolled back.
	// If fn succeeds, the unit commits as a whole.
	//
	// Nested calls reuse the existing unit from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only snapshot support.
// Use for queries that don't modify data (valuation, movement history).
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn against a consistent read-only snapshot.
	// Attempts to modify data will fail.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
