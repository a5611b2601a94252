// Package ledger defines the domain contract for the append-only ledger.
// The implementation lives in infrastructure/ledger; saga coordinators depend
// only on this interface.
//
// A call either returns a durable hash or fails; there is no partial success.
package ledger

import (
	"context"
	"time"
)

// TitleRecord is the payload for a first activation.
type TitleRecord struct {
	TitleNumber   string
	Owner         string
	Location      string
	Status        string
	ReferenceID   string
	Timestamp     time.Time
	TransactionID string
}

// CancellationRecord marks an active title as cancelled on the ledger.
type CancellationRecord struct {
	TitleNumber   string
	PriorHash     string
	Reason        string
	TransactionID string
}

// ReactivationRecord chains a new activation onto a prior cancellation.
type ReactivationRecord struct {
	TitleNumber      string
	OriginalHash     string
	CancellationHash string
	Reason           string
	TransactionID    string
}

// TransferRecord records one side of an ownership transfer. A completed
// transfer is recorded twice: once attributed to the seller, once to the buyer.
type TransferRecord struct {
	TitleNumber   string
	TransferID    string
	Party         string // "seller" or "buyer"
	Owner         string
	TransactionID string
}

// Recorder is the synchronous call boundary to the ledger service.
// Every method blocks until the ledger either returns a recorded hash or
// fails; failures are plain errors, never partial results.
type Recorder interface {
	RecordLandTitle(ctx context.Context, rec TitleRecord) (string, error)
	RecordCancellation(ctx context.Context, rec CancellationRecord) (string, error)
	RecordReactivation(ctx context.Context, rec ReactivationRecord) (string, error)
	RecordTransfer(ctx context.Context, rec TransferRecord) (string, error)
}
