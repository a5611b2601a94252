package document

import (
	"context"
)

// Repository is the persistence contract for document metadata.
// The implementation lives in infrastructure/storage/postgres/document_repo.
type Repository interface {
	InsertBatch(ctx context.Context, docs []*Document) error
	FindByTransactionID(ctx context.Context, transactionID string) ([]*Document, error)

	// DeleteByLandTitle removes everything written for a rolled-back title
	// and returns the number of rows removed.
	DeleteByLandTitle(ctx context.Context, landTitleID string) (int64, error)
}

// Inbox deduplicates redelivered messages whose effects are not naturally
// idempotent. Implemented by the postgres inbox store.
type Inbox interface {
	Seen(ctx context.Context, consumer, transactionID, eventType string) (bool, error)
	Mark(ctx context.Context, consumer, transactionID, eventType string) error
}
