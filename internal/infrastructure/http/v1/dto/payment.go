package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"landregistry/internal/domain/payment"
	"landregistry/internal/events"
)

// CreatePaymentRequest requests a payment record for a title or a transfer.
type CreatePaymentRequest struct {
	ReferenceType string          `json:"reference_type" binding:"required"`
	ReferenceID   string          `json:"reference_id" binding:"required"`
	TitleNumber   string          `json:"title_number,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PayerName     string          `json:"payer_name"`
}

// ToData maps the request onto the payment creation payload.
func (r CreatePaymentRequest) ToData() events.PaymentCreateData {
	return events.PaymentCreateData{
		ReferenceType: r.ReferenceType,
		ReferenceID:   r.ReferenceID,
		TitleNumber:   r.TitleNumber,
		Amount:        r.Amount,
		PayerName:     r.PayerName,
	}
}

// UpdatePaymentStatusRequest requests a payment status transition.
type UpdatePaymentStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Actor  string `json:"actor"`
}

// PaymentResponse is the API view of a payment.
type PaymentResponse struct {
	ID            string          `json:"id"`
	PaymentID     string          `json:"payment_id"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	TitleNumber   *string         `json:"title_number,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PayerName     string          `json:"payer_name"`
	Status        string          `json:"status"`

	ConfirmedBy   *string    `json:"confirmed_by,omitempty"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	CancelledBy   *string    `json:"cancelled_by,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	FailureReason *string    `json:"failure_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromPayment maps the domain entity onto the API view.
func FromPayment(p *payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID.String(),
		PaymentID:     p.PaymentID,
		ReferenceType: p.ReferenceType,
		ReferenceID:   p.ReferenceID,
		TitleNumber:   p.TitleNumber,
		Amount:        p.Amount,
		PayerName:     p.PayerName,
		Status:        string(p.Status),

		ConfirmedBy:   p.ConfirmedBy,
		ConfirmedAt:   p.ConfirmedAt,
		CancelledBy:   p.CancelledBy,
		CancelledAt:   p.CancelledAt,
		FailureReason: p.FailureReason,

		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
