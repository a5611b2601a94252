package payment

import (
	"context"
	"time"

	"landregistry/internal/core/apperror"
	appctx "landregistry/internal/core/context"
	"landregistry/internal/core/id"
	"landregistry/internal/core/token"
	"landregistry/internal/core/tx"
	"landregistry/internal/events"
	"landregistry/pkg/logger"
)

// tokenAttempts bounds collision-checked token generation.
const tokenAttempts = 3

// Service is the payment workflow coordinator.
type Service struct {
	repo      Repository
	txManager tx.Manager
	publisher events.Publisher
	log       *logger.Logger
}

// NewService creates the coordinator.
func NewService(repo Repository, txManager tx.Manager, publisher events.Publisher, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		publisher: publisher,
		log:       log.WithComponent("payment-saga"),
	}
}

// Create handles a payment creation request.
//
// A PAID payment for the same reference blocks creation, except for transfer
// payments: the underlying title may legitimately carry an unrelated PAID
// payment. A PENDING payment for the same reference is reused instead of
// duplicated, unless it was confirmed and then rolled back, in which case a
// fresh payment is issued.
func (s *Service) Create(ctx context.Context, data events.PaymentCreateData) error {
	if data.ReferenceID == "" || data.ReferenceType == "" || !data.Amount.IsPositive() {
		logger.Warn(ctx, "rejecting payment creation: invalid payload",
			"reference_id", data.ReferenceID,
			"reference_type", data.ReferenceType,
			"amount", data.Amount.String())
		return nil
	}

	if data.ReferenceType != events.ReferenceTypeTransfer {
		paid, err := s.repo.FindPaidByReference(ctx, data.ReferenceID, data.ReferenceType)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if paid != nil {
			logger.Warn(ctx, "reference already has a paid payment, ignoring create",
				"reference_id", data.ReferenceID,
				"payment_id", paid.PaymentID)
			return nil
		}
	}

	pending, err := s.repo.FindPendingByReference(ctx, data.ReferenceID, data.ReferenceType)
	if err != nil && !apperror.IsNotFound(err) {
		return err
	}
	if pending != nil && !pending.ConfirmedAndFailed() {
		// Idempotent reuse under retried messages.
		logger.Info(ctx, "reusing pending payment",
			"reference_id", data.ReferenceID,
			"payment_id", pending.PaymentID)
		return nil
	}

	paymentID, err := s.newPaymentID(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	p := &Payment{
		ID:            id.New(),
		PaymentID:     paymentID,
		ReferenceType: data.ReferenceType,
		ReferenceID:   data.ReferenceID,
		Amount:        data.Amount,
		PayerName:     data.PayerName,
		Status:        StatusPending,
		TransactionID: appctx.GetTransactionID(ctx),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if data.TitleNumber != "" {
		p.TitleNumber = &data.TitleNumber
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Insert(ctx, p)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "payment created",
		"payment_id", p.PaymentID,
		"reference_id", p.ReferenceID,
		"reference_type", p.ReferenceType,
		"amount", p.Amount.String())
	return nil
}

// newPaymentID generates a globally unique payment token, collision-checked
// against the store.
func (s *Service) newPaymentID(ctx context.Context) (string, error) {
	for i := 0; i < tokenAttempts; i++ {
		candidate, err := token.NewPayment()
		if err != nil {
			return "", err
		}
		existing, err := s.repo.FindByPaymentID(ctx, candidate)
		if err != nil && !apperror.IsNotFound(err) {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		logger.Warn(ctx, "payment token collision, regenerating", "payment_id", candidate)
	}
	return "", apperror.NewInternal(nil).WithDetail("reason", "payment token collisions exhausted")
}

// UpdateStatus transitions a payment to PAID or CANCELLED. Transitioning to a
// status the payment already holds is skipped without republishing, so
// redelivered messages cause no duplicate downstream effects. A genuine
// transition stamps the audit fields and notifies the registry.
func (s *Service) UpdateStatus(ctx context.Context, p events.PaymentUpdateStatus) error {
	target := Status(p.Status)
	if target != StatusPaid && target != StatusCancelled {
		logger.Warn(ctx, "ignoring status update with invalid target",
			"payment_id", p.PaymentID, "status", p.Status)
		return nil
	}

	pay, err := s.repo.FindByPaymentID(ctx, p.PaymentID)
	if err != nil {
		if apperror.IsNotFound(err) {
			logger.Error(ctx, "status update for unknown payment",
				"payment_id", p.PaymentID, "status", p.Status)
			return nil
		}
		return err
	}

	if pay.Status == target {
		logger.Info(ctx, "payment already in target status, skipping",
			"payment_id", pay.PaymentID, "status", pay.Status)
		return nil
	}

	now := time.Now().UTC()
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		switch target {
		case StatusPaid:
			return s.repo.MarkPaid(ctx, pay.PaymentID, p.Actor, now)
		default:
			return s.repo.MarkCancelled(ctx, pay.PaymentID, p.Actor, now)
		}
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "payment status updated",
		"payment_id", pay.PaymentID,
		"from", pay.Status,
		"to", target,
		"actor", p.Actor)

	return s.notifyRegistry(ctx, pay, target)
}

// notifyRegistry publishes the downstream effect of a payment transition.
// Confirmed transfer payments take the transfer completion path; everything
// else maps the payment status onto the target title status.
func (s *Service) notifyRegistry(ctx context.Context, pay *Payment, target Status) error {
	txID := appctx.GetTransactionID(ctx)

	if target == StatusPaid && pay.ReferenceType == events.ReferenceTypeTransfer {
		titleNumber := ""
		if pay.TitleNumber != nil {
			titleNumber = *pay.TitleNumber
		}
		body, err := events.Encode(events.TypePaymentConfirmed, txID, events.PaymentConfirmed{
			TitleNumber: titleNumber,
			PaymentID:   pay.PaymentID,
		})
		if err != nil {
			return err
		}
		return s.publisher.Publish(ctx, events.QueueLandRegistry, body)
	}

	titleStatus := "PENDING"
	if target == StatusPaid {
		titleStatus = "ACTIVE"
	}
	body, err := events.Encode(events.TypePaymentStatusUpdate, txID, events.PaymentStatusUpdate{
		ReferenceID: pay.ReferenceID,
		Status:      titleStatus,
	})
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, events.QueueLandRegistry, body)
}

// HandleRollbackRequired reverts the payment that activated a title whose
// ledger recording failed: the payment-side half of the compensation. The
// confirmation stamp is preserved so the payment reads as confirmed-and-failed
// and is not reused by idempotent creation.
func (s *Service) HandleRollbackRequired(ctx context.Context, p events.PaymentRollbackRequired) error {
	pay, err := s.repo.FindPaidByReference(ctx, p.TitleNumber, events.ReferenceTypeLandTitle)
	if err != nil {
		if apperror.IsNotFound(err) {
			// Already reverted, or never confirmed: nothing to compensate.
			logger.Warn(ctx, "rollback required but no paid payment found",
				"title_number", p.TitleNumber, "reason", p.Reason)
			return nil
		}
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.RevertToPending(ctx, pay.PaymentID, p.Reason)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "payment reverted after ledger failure",
		"payment_id", pay.PaymentID,
		"title_number", p.TitleNumber,
		"reason", p.Reason)
	return nil
}

// HandleTitleUpdateResult records the registry's reply to a status update.
// Success needs no state change; failure is surfaced loudly for operators.
func (s *Service) HandleTitleUpdateResult(ctx context.Context, eventType events.Type, p events.TitleUpdateResult) error {
	if eventType == events.TypeTitleUpdateSucceeded {
		logger.Info(ctx, "title transition confirmed", "reference_id", p.ReferenceID)
		return nil
	}
	logger.Error(ctx, "title transition failed downstream",
		"reference_id", p.ReferenceID, "reason", p.Reason)
	return nil
}

// Get returns one payment by its token.
func (s *Service) Get(ctx context.Context, paymentID string) (*Payment, error) {
	return s.repo.FindByPaymentID(ctx, paymentID)
}
