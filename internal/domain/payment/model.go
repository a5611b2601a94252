// Package payment implements the payment workflow coordinator: payment
// creation with idempotent reuse, status transitions with audit trail, and
// the payment-side half of the activation compensation.
package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"landregistry/internal/core/id"
)

// Status is the payment lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusPaid || s == StatusCancelled
}

// Payment is a payment record against a land title or a transfer.
// PaymentID is the externally visible time-based token; ReferenceType and
// ReferenceID form the polymorphic pointer to what is being paid for.
type Payment struct {
	ID            id.ID           `db:"id"`
	PaymentID     string          `db:"payment_id"`
	ReferenceType string          `db:"reference_type"`
	ReferenceID   string          `db:"reference_id"`
	TitleNumber   *string         `db:"title_number"` // set for transfer payments
	Amount        decimal.Decimal `db:"amount"`
	PayerName     string          `db:"payer_name"`
	Status        Status          `db:"status"`
	TransactionID string          `db:"transaction_id"`

	ConfirmedBy   *string    `db:"confirmed_by"`
	ConfirmedAt   *time.Time `db:"confirmed_at"`
	CancelledBy   *string    `db:"cancelled_by"`
	CancelledAt   *time.Time `db:"cancelled_at"`
	FailureReason *string    `db:"failure_reason"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ConfirmedAndFailed reports whether this payment was once confirmed and then
// reverted by a rollback: it sits PENDING but carries a confirmation stamp.
// Such payments are not reused by idempotent creation.
func (p *Payment) ConfirmedAndFailed() bool {
	return p.Status == StatusPending && p.ConfirmedAt != nil
}
