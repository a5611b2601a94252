package title

import (
	"context"
	"time"

	"landregistry/internal/core/apperror"
	appctx "landregistry/internal/core/context"
	"landregistry/internal/core/id"
	"landregistry/internal/core/ledger"
	"landregistry/internal/core/tx"
	"landregistry/internal/events"
	"landregistry/pkg/logger"
)

// Service is the land-title saga coordinator. It owns every mutation of the
// land_titles table; other services reach it only through queue messages.
type Service struct {
	repo      Repository
	txManager tx.Manager
	ledger    ledger.Recorder
	publisher events.Publisher
	log       *logger.Logger
}

// NewService creates the coordinator.
func NewService(repo Repository, txManager tx.Manager, recorder ledger.Recorder, publisher events.Publisher, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		ledger:    recorder,
		publisher: publisher,
		log:       log.WithComponent("title-saga"),
	}
}

// Create handles a land-title creation request: insert the row as PENDING and
// ask the document service to persist any attachments. Validation and
// duplicate rejections are terminal (the message is acknowledged, no side
// effect); a redelivered create for the same transaction resumes at the
// document-request step instead of duplicating the row.
func (s *Service) Create(ctx context.Context, data events.TitleCreateData) error {
	txID := appctx.GetTransactionID(ctx)

	if data.TitleNumber == "" || data.OwnerName == "" {
		logger.Warn(ctx, "rejecting title creation: missing required fields",
			"title_number", data.TitleNumber)
		return nil
	}

	existing, err := s.repo.FindByTitleNumber(ctx, data.TitleNumber)
	if err != nil && !apperror.IsNotFound(err) {
		return err
	}

	var created *LandTitle
	switch {
	case existing == nil:
		now := time.Now().UTC()
		created = &LandTitle{
			ID:             id.New(),
			TitleNumber:    data.TitleNumber,
			OwnerName:      data.OwnerName,
			OwnerAddress:   data.OwnerAddress,
			OwnerContact:   data.OwnerContact,
			Location:       data.Location,
			Classification: data.Classification,
			AreaSqm:        data.AreaSqm,
			Status:         StatusPending,
			TransactionID:  txID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			return s.repo.Insert(ctx, created)
		})
		if err != nil {
			return err
		}
		logger.Info(ctx, "land title created",
			"title_number", created.TitleNumber, "status", created.Status)

	case existing.TransactionID == txID:
		// Redelivered create: the row is already ours, resume at the
		// document-request step.
		logger.Info(ctx, "title already created by this transaction, resuming",
			"title_number", existing.TitleNumber)
		created = existing

	default:
		logger.Warn(ctx, "title number already registered, ignoring create",
			"title_number", data.TitleNumber)
		return nil
	}

	if len(data.Attachments) == 0 {
		// No documents: the title simply remains PENDING awaiting payment.
		return nil
	}

	body, err := events.Encode(events.TypeDocumentUploadRequest, txID, events.DocumentUploadRequest{
		LandTitleID: created.ID.String(),
		Attachments: data.Attachments,
		UserID:      appctx.GetUserID(ctx),
	})
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, events.QueueDocument, body)
}

// HandleDocumentFailed rolls back a creation whose document intake failed:
// the title row is deleted entirely and the document service is told to
// discard anything it partially wrote. The delete and the rollback publish
// are separate units, so this compensation is best-effort.
func (s *Service) HandleDocumentFailed(ctx context.Context, p events.DocumentFailed) error {
	titleID, err := id.Parse(p.LandTitleID)
	if err != nil {
		logger.Warn(ctx, "document failure carries invalid land_title_id",
			"land_title_id", p.LandTitleID)
		return nil
	}

	deleted, err := s.repo.DeleteByID(ctx, titleID)
	if err != nil {
		return err
	}
	if deleted {
		logger.Info(ctx, "title removed after document failure",
			"land_title_id", p.LandTitleID, "reason", p.Error)
	} else {
		logger.Info(ctx, "title already removed, re-sending document rollback",
			"land_title_id", p.LandTitleID)
	}

	body, err := events.Encode(events.TypeDocumentRollback, appctx.GetTransactionID(ctx), events.DocumentRollback{
		LandTitleID: p.LandTitleID,
		Reason:      p.Error,
	})
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, events.QueueDocument, body)
}

// HandleDocumentUploaded acknowledges the document intake success reply.
// The title stays PENDING awaiting payment; the documents live in the
// document service's store.
func (s *Service) HandleDocumentUploaded(ctx context.Context, p events.DocumentUploaded) error {
	logger.Info(ctx, "documents attached to title",
		"land_title_id", p.LandTitleID,
		"count", len(p.UploadedDocuments))
	return nil
}

// HandlePaymentStatus applies a payment-driven status transition:
// ACTIVE activates (or reactivates) the title with a ledger record, PENDING
// on an active title cancels it. Unknown references are reported back to the
// payment service, never silently dropped.
func (s *Service) HandlePaymentStatus(ctx context.Context, p events.PaymentStatusUpdate) error {
	target := Status(p.Status)
	if !target.Valid() {
		logger.Warn(ctx, "ignoring payment status update with invalid target",
			"reference_id", p.ReferenceID, "status", p.Status)
		return nil
	}

	t, err := s.repo.FindByTitleNumber(ctx, p.ReferenceID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return s.publishTitleResult(ctx, events.TypeTitleUpdateFailed,
				p.ReferenceID, "land title not found")
		}
		return err
	}

	switch {
	case target == StatusActive && t.Status == StatusPending:
		return s.activate(ctx, t)
	case target == StatusPending && t.Status == StatusActive:
		return s.cancel(ctx, t)
	default:
		// Already in the target status: redelivered or duplicate message.
		logger.Info(ctx, "title already in target status, skipping",
			"title_number", t.TitleNumber, "status", t.Status)
		return nil
	}
}

// activate commits the PENDING→ACTIVE transition, then records it on the
// ledger. A cancellation history makes this a reactivation. Ledger failure
// after the commit triggers the explicit compensation pair: revert the status
// with a direct write and ask the payment service to revert its record.
func (s *Service) activate(ctx context.Context, t *LandTitle) error {
	var moved bool
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		moved, err = s.repo.UpdateStatus(ctx, t.TitleNumber, StatusPending, StatusActive)
		return err
	})
	if err != nil {
		return err
	}
	if !moved {
		logger.Warn(ctx, "activation already applied by a concurrent message, skipping",
			"title_number", t.TitleNumber)
		return nil
	}

	txID := appctx.GetTransactionID(ctx)

	var (
		hash      string
		ledgerErr error
		persist   func(context.Context) error
	)
	if t.WasCancelled() {
		hash, ledgerErr = s.ledger.RecordReactivation(ctx, ledger.ReactivationRecord{
			TitleNumber:      t.TitleNumber,
			OriginalHash:     derefOrEmpty(t.BlockchainHash),
			CancellationHash: *t.CancellationHash,
			Reason:           "payment confirmed after cancellation",
			TransactionID:    txID,
		})
		persist = func(ctx context.Context) error {
			return s.repo.SetReactivationHash(ctx, t.TitleNumber, hash)
		}
	} else {
		hash, ledgerErr = s.ledger.RecordLandTitle(ctx, ledger.TitleRecord{
			TitleNumber:   t.TitleNumber,
			Owner:         t.OwnerName,
			Location:      t.Location,
			Status:        string(StatusActive),
			ReferenceID:   t.ID.String(),
			Timestamp:     time.Now().UTC(),
			TransactionID: txID,
		})
		persist = func(ctx context.Context) error {
			return s.repo.SetBlockchainHash(ctx, t.TitleNumber, hash)
		}
	}

	if ledgerErr != nil {
		// The ACTIVE update has already committed, so this is a compensating
		// write, not a rollback.
		logger.Error(ctx, "ledger recording failed, reverting activation",
			"title_number", t.TitleNumber, "error", ledgerErr)
		if err := s.repo.SetStatus(ctx, t.TitleNumber, StatusPending); err != nil {
			logger.Error(ctx, "compensating status revert failed",
				"title_number", t.TitleNumber, "error", err)
			return err
		}
		return s.publishRollbackRequired(ctx, t.TitleNumber, ledgerErr.Error())
	}

	if err := persist(ctx); err != nil {
		logger.Error(ctx, "persisting ledger hash failed",
			"title_number", t.TitleNumber, "hash", hash, "error", err)
		return err
	}

	logger.Info(ctx, "title activated",
		"title_number", t.TitleNumber,
		"reactivation", t.WasCancelled(),
		"hash", hash)
	return s.publishTitleResult(ctx, events.TypeTitleUpdateSucceeded, t.TitleNumber, "")
}

// cancel commits the ACTIVE→PENDING transition and records the cancellation.
// A ledger failure here is logged but does not revert the status change: the
// database and the ledger are left inconsistent until operators reconcile.
func (s *Service) cancel(ctx context.Context, t *LandTitle) error {
	var moved bool
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		moved, err = s.repo.UpdateStatus(ctx, t.TitleNumber, StatusActive, StatusPending)
		return err
	})
	if err != nil {
		return err
	}
	if !moved {
		logger.Warn(ctx, "cancellation already applied by a concurrent message, skipping",
			"title_number", t.TitleNumber)
		return nil
	}

	hash, err := s.ledger.RecordCancellation(ctx, ledger.CancellationRecord{
		TitleNumber:   t.TitleNumber,
		PriorHash:     t.CurrentHash(),
		Reason:        "payment cancelled",
		TransactionID: appctx.GetTransactionID(ctx),
	})
	if err != nil {
		logger.Error(ctx, "cancellation ledger recording failed; title left without cancellation hash",
			"title_number", t.TitleNumber, "error", err)
		return nil
	}

	if err := s.repo.SetCancellation(ctx, t.TitleNumber, hash, time.Now().UTC()); err != nil {
		return err
	}

	logger.Info(ctx, "title cancelled", "title_number", t.TitleNumber, "hash", hash)
	return nil
}

// Get returns one title by its number.
func (s *Service) Get(ctx context.Context, titleNumber string) (*LandTitle, error) {
	return s.repo.FindByTitleNumber(ctx, titleNumber)
}

// List returns a page of titles.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*LandTitle, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) publishTitleResult(ctx context.Context, eventType events.Type, referenceID, reason string) error {
	body, err := events.Encode(eventType, appctx.GetTransactionID(ctx), events.TitleUpdateResult{
		ReferenceID: referenceID,
		Reason:      reason,
	})
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, events.QueuePayment, body)
}

func (s *Service) publishRollbackRequired(ctx context.Context, titleNumber, reason string) error {
	body, err := events.Encode(events.TypePaymentRollbackRequired, appctx.GetTransactionID(ctx), events.PaymentRollbackRequired{
		TitleNumber: titleNumber,
		Reason:      reason,
	})
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, events.QueuePayment, body)
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
