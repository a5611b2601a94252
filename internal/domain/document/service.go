package document

import (
	"context"
	"time"

	appctx "landregistry/internal/core/context"
	"landregistry/internal/core/id"
	"landregistry/internal/core/tx"
	"landregistry/internal/events"
	"landregistry/pkg/logger"
)

// consumerName keys this service's rows in the inbox table.
const consumerName = "document"

// Service is the document intake step.
type Service struct {
	repo      Repository
	inbox     Inbox
	txManager tx.Manager
	publisher events.Publisher
	log       *logger.Logger
}

// NewService creates the intake service.
func NewService(repo Repository, inbox Inbox, txManager tx.Manager, publisher events.Publisher, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		inbox:     inbox,
		txManager: txManager,
		publisher: publisher,
		log:       log.WithComponent("document-intake"),
	}
}

// HandleUploadRequest persists attachment metadata and reports the outcome to
// the registry. Blind inserts are not redelivery-safe, so the handler dedups
// by transaction id: a replayed request re-publishes the success reply built
// from the rows already written instead of inserting again.
//
// Validation failures produce a failure reply (triggering the registry's
// create rollback); infrastructure failures return an error so the message is
// redelivered.
func (s *Service) HandleUploadRequest(ctx context.Context, p events.DocumentUploadRequest) error {
	txID := appctx.GetTransactionID(ctx)

	seen, err := s.inbox.Seen(ctx, consumerName, txID, string(events.TypeDocumentUploadRequest))
	if err != nil {
		return err
	}
	if seen {
		existing, err := s.repo.FindByTransactionID(ctx, txID)
		if err != nil {
			return err
		}
		logger.Info(ctx, "upload request already processed, re-sending reply",
			"land_title_id", p.LandTitleID, "documents", len(existing))
		return s.publishUploaded(ctx, p.LandTitleID, existing)
	}

	if p.LandTitleID == "" || len(p.Attachments) == 0 {
		return s.publishFailed(ctx, p.LandTitleID, "upload request carries no attachments")
	}
	for _, a := range p.Attachments {
		if a.FileName == "" || a.StorageKey == "" {
			return s.publishFailed(ctx, p.LandTitleID, "attachment missing file_name or storage_key")
		}
	}

	now := time.Now().UTC()
	docs := make([]*Document, 0, len(p.Attachments))
	for _, a := range p.Attachments {
		docs = append(docs, &Document{
			ID:            id.New(),
			LandTitleID:   p.LandTitleID,
			TransactionID: txID,
			FileName:      a.FileName,
			ContentType:   a.ContentType,
			StorageKey:    a.StorageKey,
			Size:          a.Size,
			UploadedBy:    p.UserID,
			CreatedAt:     now,
		})
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.InsertBatch(ctx, docs); err != nil {
			return err
		}
		return s.inbox.Mark(ctx, consumerName, txID, string(events.TypeDocumentUploadRequest))
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "documents persisted",
		"land_title_id", p.LandTitleID, "count", len(docs))
	return s.publishUploaded(ctx, p.LandTitleID, docs)
}

// HandleRollback deletes everything written for a rolled-back title.
// Deleting is naturally idempotent: a redelivery finds nothing to remove.
func (s *Service) HandleRollback(ctx context.Context, p events.DocumentRollback) error {
	if p.LandTitleID == "" {
		logger.Warn(ctx, "rollback without land_title_id, ignoring")
		return nil
	}

	n, err := s.repo.DeleteByLandTitle(ctx, p.LandTitleID)
	if err != nil {
		return err
	}

	logger.Info(ctx, "documents rolled back",
		"land_title_id", p.LandTitleID,
		"deleted", n,
		"reason", p.Reason)
	return nil
}

func (s *Service) publishUploaded(ctx context.Context, landTitleID string, docs []*Document) error {
	uploaded := make([]events.UploadedDocument, 0, len(docs))
	for _, d := range docs {
		uploaded = append(uploaded, events.UploadedDocument{
			DocumentID: d.ID.String(),
			FileName:   d.FileName,
			StorageKey: d.StorageKey,
		})
	}

	body, err := events.Encode(events.TypeDocumentUploaded, appctx.GetTransactionID(ctx), events.DocumentUploaded{
		LandTitleID:       landTitleID,
		UploadedDocuments: uploaded,
	})
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, events.QueueLandRegistry, body)
}

func (s *Service) publishFailed(ctx context.Context, landTitleID, reason string) error {
	logger.Warn(ctx, "document intake failed",
		"land_title_id", landTitleID, "reason", reason)

	body, err := events.Encode(events.TypeDocumentFailed, appctx.GetTransactionID(ctx), events.DocumentFailed{
		LandTitleID: landTitleID,
		Error:       reason,
	})
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, events.QueueLandRegistry, body)
}
