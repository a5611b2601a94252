package title

import (
	"context"
	"time"

	"landregistry/internal/core/id"
)

// Repository is the persistence contract for land titles.
// The implementation lives in infrastructure/storage/postgres/registry_repo.
type Repository interface {
	Insert(ctx context.Context, t *LandTitle) error
	FindByTitleNumber(ctx context.Context, titleNumber string) (*LandTitle, error)
	List(ctx context.Context, limit, offset int) ([]*LandTitle, error)

	// UpdateStatus is a conditional transition: it succeeds only when the row
	// is still in the expected prior status, and reports whether a row moved.
	// A false result means a concurrent message already applied the
	// transition.
	UpdateStatus(ctx context.Context, titleNumber string, from, to Status) (bool, error)

	// SetStatus is the unconditional compensating write used after a ledger
	// failure, once the forward transition has already committed.
	SetStatus(ctx context.Context, titleNumber string, to Status) error

	SetBlockchainHash(ctx context.Context, titleNumber, hash string) error
	SetCancellation(ctx context.Context, titleNumber, hash string, at time.Time) error
	SetReactivationHash(ctx context.Context, titleNumber, hash string) error
	SetOwner(ctx context.Context, titleNumber, name, address, contact string) error

	// DeleteByID removes a title entirely (document-failure rollback) and
	// reports whether a row existed.
	DeleteByID(ctx context.Context, titleID id.ID) (bool, error)
}
