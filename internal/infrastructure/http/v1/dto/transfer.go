package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"landregistry/internal/domain/transfer"
	"landregistry/internal/events"
)

// CreateTransferRequest opens an ownership transfer for an active title.
type CreateTransferRequest struct {
	TitleNumber  string          `json:"title_number" binding:"required"`
	BuyerName    string          `json:"buyer_name" binding:"required"`
	BuyerAddress string          `json:"buyer_address"`
	BuyerContact string          `json:"buyer_contact"`
	TransferFee  decimal.Decimal `json:"transfer_fee"`
}

// ToData maps the request onto the transfer creation payload.
func (r CreateTransferRequest) ToData() events.TransferCreateData {
	return events.TransferCreateData{
		TitleNumber:  r.TitleNumber,
		BuyerName:    r.BuyerName,
		BuyerAddress: r.BuyerAddress,
		BuyerContact: r.BuyerContact,
		TransferFee:  r.TransferFee,
	}
}

// TransferResponse is the API view of a transfer.
type TransferResponse struct {
	ID          string `json:"id"`
	TransferID  string `json:"transfer_id"`
	TitleNumber string `json:"title_number"`

	SellerName string `json:"seller_name"`
	BuyerName  string `json:"buyer_name"`

	TransferFee    decimal.Decimal `json:"transfer_fee"`
	Status         string          `json:"status"`
	BlockchainHash *string         `json:"blockchain_hash,omitempty"`
	TransactionID  string          `json:"transaction_id"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FromTransfer maps the domain entity onto the API view.
func FromTransfer(t *transfer.Transfer) TransferResponse {
	return TransferResponse{
		ID:          t.ID.String(),
		TransferID:  t.TransferID,
		TitleNumber: t.TitleNumber,

		SellerName: t.SellerName,
		BuyerName:  t.BuyerName,

		TransferFee:    t.TransferFee,
		Status:         string(t.Status),
		BlockchainHash: t.BlockchainHash,
		TransactionID:  t.TransactionID,

		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
	}
}
