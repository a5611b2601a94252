// Package dispatch routes decoded queue messages to saga handlers. Each
// service has one dispatcher: it decodes the envelope once at the consume
// edge, installs the saga correlation context, and switches exhaustively over
// the closed event set. Undecodable messages are logged and acknowledged:
// redelivering a message that can never decode would loop forever.
package dispatch

import (
	"context"

	appctx "landregistry/internal/core/context"
	"landregistry/internal/domain/document"
	"landregistry/internal/domain/payment"
	"landregistry/internal/domain/title"
	"landregistry/internal/domain/transfer"
	"landregistry/internal/events"
	"landregistry/pkg/logger"
)

func withSaga(ctx context.Context, env *events.Envelope) context.Context {
	return appctx.WithSaga(ctx, &appctx.SagaContext{
		TransactionID: env.TransactionID,
		UserID:        env.UserID,
	})
}

// Registry dispatches land.registry.queue messages to the title and transfer
// coordinators.
type Registry struct {
	titles    *title.Service
	transfers *transfer.Service
	log       *logger.Logger
}

// NewRegistry creates the registry-service dispatcher.
func NewRegistry(titles *title.Service, transfers *transfer.Service, log *logger.Logger) *Registry {
	return &Registry{
		titles:    titles,
		transfers: transfers,
		log:       log.WithComponent("registry-dispatch"),
	}
}

// Handle implements broker.Handler for land.registry.queue.
func (d *Registry) Handle(ctx context.Context, body []byte) error {
	env, payload, err := events.DecodeRegistry(body)
	if err != nil {
		d.log.Errorw("dropping undecodable registry message", "error", err)
		return nil
	}
	ctx = withSaga(ctx, env)

	switch p := payload.(type) {
	case events.TitleCreateData:
		return d.titles.Create(ctx, p)
	case events.TransferCreateData:
		_, err := d.transfers.Submit(ctx, p)
		if err != nil {
			// Precondition failures are terminal for a queued request.
			logger.Warn(ctx, "queued transfer request rejected",
				"title_number", p.TitleNumber, "error", err)
		}
		return nil
	case events.PaymentStatusUpdate:
		return d.titles.HandlePaymentStatus(ctx, p)
	case events.PaymentConfirmed:
		return d.transfers.HandlePaymentConfirmed(ctx, p)
	case events.DocumentUploaded:
		return d.titles.HandleDocumentUploaded(ctx, p)
	case events.DocumentFailed:
		return d.titles.HandleDocumentFailed(ctx, p)
	default:
		d.log.Errorw("registry message decoded to unexpected payload",
			"event_type", env.EventType)
		return nil
	}
}

// Payment dispatches payment.queue messages to the payment coordinator.
type Payment struct {
	payments *payment.Service
	log      *logger.Logger
}

// NewPayment creates the payment-service dispatcher.
func NewPayment(payments *payment.Service, log *logger.Logger) *Payment {
	return &Payment{
		payments: payments,
		log:      log.WithComponent("payment-dispatch"),
	}
}

// Handle implements broker.Handler for payment.queue.
func (d *Payment) Handle(ctx context.Context, body []byte) error {
	env, payload, err := events.DecodePayment(body)
	if err != nil {
		d.log.Errorw("dropping undecodable payment message", "error", err)
		return nil
	}
	ctx = withSaga(ctx, env)

	switch p := payload.(type) {
	case events.PaymentCreateData:
		return d.payments.Create(ctx, p)
	case events.PaymentUpdateStatus:
		return d.payments.UpdateStatus(ctx, p)
	case events.PaymentRollbackRequired:
		return d.payments.HandleRollbackRequired(ctx, p)
	case events.TitleUpdateResult:
		return d.payments.HandleTitleUpdateResult(ctx, env.EventType, p)
	default:
		d.log.Errorw("payment message decoded to unexpected payload",
			"event_type", env.EventType)
		return nil
	}
}

// Document dispatches document.queue messages to the intake service.
type Document struct {
	documents *document.Service
	log       *logger.Logger
}

// NewDocument creates the document-service dispatcher.
func NewDocument(documents *document.Service, log *logger.Logger) *Document {
	return &Document{
		documents: documents,
		log:       log.WithComponent("document-dispatch"),
	}
}

// Handle implements broker.Handler for document.queue.
func (d *Document) Handle(ctx context.Context, body []byte) error {
	env, payload, err := events.DecodeDocument(body)
	if err != nil {
		d.log.Errorw("dropping undecodable document message", "error", err)
		return nil
	}
	ctx = withSaga(ctx, env)

	switch p := payload.(type) {
	case events.DocumentUploadRequest:
		return d.documents.HandleUploadRequest(ctx, p)
	case events.DocumentRollback:
		return d.documents.HandleRollback(ctx, p)
	default:
		d.log.Errorw("document message decoded to unexpected payload",
			"event_type", env.EventType)
		return nil
	}
}
