// Package transfer implements the ownership-transfer saga: a secondary
// lifecycle over an active title that reuses the payment coordinator and the
// ledger client.
package transfer

import (
	"time"

	"github.com/shopspring/decimal"

	"landregistry/internal/core/id"
)

// Status is the transfer lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Transfer is one ownership change of a land title. Seller fields are a
// snapshot of the title's owner at submission time; buyer fields replace the
// title's owner on completion. BlockchainHash stores the comma-joined pair of
// ledger hashes (seller record, buyer record).
type Transfer struct {
	ID          id.ID  `db:"id"`
	TransferID  string `db:"transfer_id"`
	TitleNumber string `db:"title_number"`

	SellerName    string `db:"seller_name"`
	SellerAddress string `db:"seller_address"`
	SellerContact string `db:"seller_contact"`

	BuyerName    string `db:"buyer_name"`
	BuyerAddress string `db:"buyer_address"`
	BuyerContact string `db:"buyer_contact"`

	TransferFee    decimal.Decimal `db:"transfer_fee"`
	Status         Status          `db:"status"`
	BlockchainHash *string         `db:"blockchain_hash"`
	TransactionID  string          `db:"transaction_id"`

	CompletedAt *time.Time `db:"completed_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}
