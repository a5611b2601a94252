package transfer

import (
	"context"
	"time"
)

// Repository is the persistence contract for transfers.
// The implementation lives in infrastructure/storage/postgres/registry_repo.
type Repository interface {
	Insert(ctx context.Context, t *Transfer) error
	FindByTransferID(ctx context.Context, transferID string) (*Transfer, error)

	// FindPendingByTitle returns the open (PENDING) transfer for a title, or
	// a not-found error. A title has at most one non-terminal transfer.
	FindPendingByTitle(ctx context.Context, titleNumber string) (*Transfer, error)

	// Complete transitions PENDING→COMPLETED conditionally and reports
	// whether a row moved; false means a concurrent message already applied
	// the completion.
	Complete(ctx context.Context, transferID string, at time.Time) (bool, error)

	SetBlockchainHash(ctx context.Context, transferID, hash string) error
}
