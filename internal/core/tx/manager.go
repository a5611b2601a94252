// Package tx provides transaction management abstractions.
// This package defines interfaces that decouple saga coordinators from the
// specific database implementation.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
// Implementations handle BEGIN, COMMIT, ROLLBACK, and nested transaction support.
//
// Saga coordinators depend on this interface, not concrete implementations.
// The actual implementation lives in infrastructure/storage/postgres.
//
// A saga step wraps all of its local database writes in one RunInTransaction
// call: either every write commits, or none does. Atomicity stops at the
// database boundary; external calls (ledger, broker) made after the commit
// require explicit compensating writes on failure.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
