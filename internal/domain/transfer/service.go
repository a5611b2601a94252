package transfer

import (
	"context"
	"strings"
	"time"

	"landregistry/internal/core/apperror"
	appctx "landregistry/internal/core/context"
	"landregistry/internal/core/id"
	"landregistry/internal/core/ledger"
	"landregistry/internal/core/token"
	"landregistry/internal/core/tx"
	"landregistry/internal/domain/title"
	"landregistry/internal/events"
	"landregistry/pkg/logger"
)

// Service drives the ownership-transfer saga.
type Service struct {
	repo      Repository
	titles    title.Repository
	txManager tx.Manager
	ledger    ledger.Recorder
	publisher events.Publisher
	log       *logger.Logger
}

// NewService creates the transfer saga service.
func NewService(repo Repository, titles title.Repository, txManager tx.Manager, recorder ledger.Recorder, publisher events.Publisher, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		titles:    titles,
		txManager: txManager,
		ledger:    recorder,
		publisher: publisher,
		log:       log.WithComponent("transfer-saga"),
	}
}

// Submit validates the transfer preconditions, opens a PENDING transfer with
// a snapshot of the seller, and requests a payment for the transfer fee.
// Precondition failures are rejected synchronously with no side effect.
func (s *Service) Submit(ctx context.Context, data events.TransferCreateData) (*Transfer, error) {
	if data.TitleNumber == "" || data.BuyerName == "" {
		return nil, apperror.NewValidation("title_number and buyer_name are required")
	}
	if !data.TransferFee.IsPositive() {
		return nil, apperror.NewValidation("transfer_fee must be positive")
	}

	t, err := s.titles.FindByTitleNumber(ctx, data.TitleNumber)
	if err != nil {
		return nil, err
	}
	if t.Status != title.StatusActive {
		return nil, apperror.NewBusinessRule(apperror.CodeTitleInactive,
			"only active titles can be transferred").
			WithDetail("title_number", t.TitleNumber).
			WithDetail("status", t.Status)
	}

	open, err := s.repo.FindPendingByTitle(ctx, data.TitleNumber)
	if err != nil && !apperror.IsNotFound(err) {
		return nil, err
	}
	if open != nil {
		return nil, apperror.NewBusinessRule(apperror.CodeOpenTransfer,
			"title already has an open transfer").
			WithDetail("transfer_id", open.TransferID)
	}

	transferID, err := token.NewTransfer()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tr := &Transfer{
		ID:          id.New(),
		TransferID:  transferID,
		TitleNumber: t.TitleNumber,

		SellerName:    t.OwnerName,
		SellerAddress: t.OwnerAddress,
		SellerContact: t.OwnerContact,

		BuyerName:    data.BuyerName,
		BuyerAddress: data.BuyerAddress,
		BuyerContact: data.BuyerContact,

		TransferFee:   data.TransferFee,
		Status:        StatusPending,
		TransactionID: appctx.GetTransactionID(ctx),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Insert(ctx, tr)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer opened",
		"transfer_id", tr.TransferID,
		"title_number", tr.TitleNumber,
		"buyer", tr.BuyerName)

	body, err := events.Encode(events.TypePaymentCreate, tr.TransactionID, events.PaymentCreateData{
		ReferenceType: events.ReferenceTypeTransfer,
		ReferenceID:   tr.TransferID,
		TitleNumber:   tr.TitleNumber,
		Amount:        tr.TransferFee,
		PayerName:     tr.BuyerName,
	})
	if err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, events.QueuePayment, body); err != nil {
		return nil, err
	}

	return tr, nil
}

// HandlePaymentConfirmed completes the transfer whose fee was paid: the
// transfer is marked COMPLETED, the title's owner fields are overwritten with
// the buyer's, and the transfer is recorded on the ledger twice: once
// attributed to the seller, once to the buyer. The two resulting hashes are
// joined with a comma and stored as one string. If one of the two calls
// fails, the failure is logged and left uncompensated.
func (s *Service) HandlePaymentConfirmed(ctx context.Context, p events.PaymentConfirmed) error {
	tr, err := s.repo.FindPendingByTitle(ctx, p.TitleNumber)
	if err != nil {
		if apperror.IsNotFound(err) {
			return s.publishFailure(ctx, p.TitleNumber, "no open transfer for title")
		}
		return err
	}

	now := time.Now().UTC()
	var moved bool
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		moved, err = s.repo.Complete(ctx, tr.TransferID, now)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		return s.titles.SetOwner(ctx, tr.TitleNumber, tr.BuyerName, tr.BuyerAddress, tr.BuyerContact)
	})
	if err != nil {
		return err
	}
	if !moved {
		logger.Warn(ctx, "transfer already completed by a concurrent message, skipping",
			"transfer_id", tr.TransferID)
		return nil
	}

	logger.Info(ctx, "transfer completed",
		"transfer_id", tr.TransferID,
		"title_number", tr.TitleNumber,
		"payment_id", p.PaymentID,
		"new_owner", tr.BuyerName)

	txID := appctx.GetTransactionID(ctx)
	var hashes []string

	sellerHash, err := s.ledger.RecordTransfer(ctx, ledger.TransferRecord{
		TitleNumber:   tr.TitleNumber,
		TransferID:    tr.TransferID,
		Party:         "seller",
		Owner:         tr.SellerName,
		TransactionID: txID,
	})
	if err != nil {
		logger.Error(ctx, "seller-side transfer ledger recording failed",
			"transfer_id", tr.TransferID, "error", err)
	} else {
		hashes = append(hashes, sellerHash)
	}

	buyerHash, err := s.ledger.RecordTransfer(ctx, ledger.TransferRecord{
		TitleNumber:   tr.TitleNumber,
		TransferID:    tr.TransferID,
		Party:         "buyer",
		Owner:         tr.BuyerName,
		TransactionID: txID,
	})
	if err != nil {
		logger.Error(ctx, "buyer-side transfer ledger recording failed",
			"transfer_id", tr.TransferID, "error", err)
	} else {
		hashes = append(hashes, buyerHash)
	}

	if len(hashes) == 0 {
		return nil
	}
	if err := s.repo.SetBlockchainHash(ctx, tr.TransferID, strings.Join(hashes, ",")); err != nil {
		return err
	}
	return nil
}

// Get returns the open or most relevant transfer for a title.
func (s *Service) GetByTitle(ctx context.Context, titleNumber string) (*Transfer, error) {
	return s.repo.FindPendingByTitle(ctx, titleNumber)
}

func (s *Service) publishFailure(ctx context.Context, referenceID, reason string) error {
	body, err := events.Encode(events.TypeTitleUpdateFailed, appctx.GetTransactionID(ctx), events.TitleUpdateResult{
		ReferenceID: referenceID,
		Reason:      reason,
	})
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, events.QueuePayment, body)
}
