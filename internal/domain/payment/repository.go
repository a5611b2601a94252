package payment

import (
	"context"
	"time"
)

// Repository is the persistence contract for payments.
// The implementation lives in infrastructure/storage/postgres/payment_repo.
type Repository interface {
	Insert(ctx context.Context, p *Payment) error
	FindByPaymentID(ctx context.Context, paymentID string) (*Payment, error)

	// FindPendingByReference returns the PENDING payment for a reference, or
	// a not-found error. At most one PENDING payment exists per reference;
	// enforced by lookup-before-create, not by a constraint.
	FindPendingByReference(ctx context.Context, referenceID, referenceType string) (*Payment, error)

	// FindPaidByReference returns the PAID payment for a reference, or a
	// not-found error.
	FindPaidByReference(ctx context.Context, referenceID, referenceType string) (*Payment, error)

	// MarkPaid stamps the confirmation audit fields.
	MarkPaid(ctx context.Context, paymentID, confirmedBy string, at time.Time) error

	// MarkCancelled stamps the cancellation audit fields.
	MarkCancelled(ctx context.Context, paymentID, cancelledBy string, at time.Time) error

	// RevertToPending is the payment-side compensation: status back to
	// PENDING with the failure reason, confirmation stamp preserved so the
	// payment is recognizable as confirmed-and-failed.
	RevertToPending(ctx context.Context, paymentID, reason string) error
}
