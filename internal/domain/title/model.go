// Package title implements the land-title saga coordinator: the title status
// state machine, document intake orchestration, ledger recording and the
// compensations that keep title, payment and ledger consistent under partial
// failure.
package title

import (
	"time"

	"github.com/shopspring/decimal"

	"landregistry/internal/core/id"
)

// Status is the land-title lifecycle state.
type Status string

const (
	// StatusPending means no confirmed payment backs this title.
	StatusPending Status = "PENDING"
	// StatusActive means a payment was confirmed and the activation is
	// recorded on the ledger.
	StatusActive Status = "ACTIVE"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusActive
}

// LandTitle is the registered land title. Owned and mutated exclusively by
// this service.
//
// The ledger hash fields track the title's hash chain: BlockchainHash is set
// on first activation, CancellationHash when an active title is cancelled,
// and ReactivationHash when a previously cancelled title is activated again.
// ReactivationHash is only ever set when CancellationHash is already present.
type LandTitle struct {
	ID             id.ID           `db:"id"`
	TitleNumber    string          `db:"title_number"`
	OwnerName      string          `db:"owner_name"`
	OwnerAddress   string          `db:"owner_address"`
	OwnerContact   string          `db:"owner_contact"`
	Location       string          `db:"location"`
	Classification string          `db:"classification"`
	AreaSqm        decimal.Decimal `db:"area_sqm"`
	Status         Status          `db:"status"`
	TransactionID  string          `db:"transaction_id"`

	BlockchainHash   *string    `db:"blockchain_hash"`
	CancellationHash *string    `db:"cancellation_hash"`
	ReactivationHash *string    `db:"reactivation_hash"`
	CancelledAt      *time.Time `db:"cancelled_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// WasCancelled reports whether this title carries cancellation history, which
// makes the next activation a reactivation instead of a first activation.
func (t *LandTitle) WasCancelled() bool {
	return t.CancellationHash != nil && *t.CancellationHash != ""
}

// CurrentHash returns the most recent ledger hash in the title's chain.
func (t *LandTitle) CurrentHash() string {
	if t.ReactivationHash != nil && *t.ReactivationHash != "" {
		return *t.ReactivationHash
	}
	if t.BlockchainHash != nil {
		return *t.BlockchainHash
	}
	return ""
}
