// Package events defines the message contracts between the registry, payment
// and document services. Every message travelling over the broker is an
// Envelope carrying an event type, the saga correlation id and one typed
// payload. Payloads are decoded exactly once, at the queue-consume edge;
// unknown or malformed messages never reach saga logic.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Queue names. Each queue is owned by exactly one consuming service.
const (
	QueueLandRegistry = "land.registry.queue"
	QueuePayment      = "payment.queue"
	QueueDocument     = "document.queue"
)

// Reference types used by payments to point at what they pay for.
const (
	ReferenceTypeLandTitle = "Land Title"
	ReferenceTypeTransfer  = "Transfer Title"
)

// Type identifies the kind of a saga message. The set is closed: dispatchers
// switch exhaustively over these values and reject anything else.
type Type string

const (
	// land.registry.queue
	TypeLandTitleCreate     Type = "LAND_TITLE_CREATE"
	TypeTransferCreate      Type = "TRANSFER_CREATE"
	TypePaymentStatusUpdate Type = "PAYMENT_STATUS_UPDATE"
	TypePaymentConfirmed    Type = "PAYMENT_CONFIRMED"
	TypeDocumentUploaded    Type = "DOCUMENT_UPLOADED"
	TypeDocumentFailed      Type = "DOCUMENT_FAILED"

	// payment.queue
	TypePaymentCreate           Type = "PAYMENT_CREATE"
	TypePaymentUpdateStatus     Type = "UPDATE_STATUS"
	TypePaymentRollbackRequired Type = "PAYMENT_ROLLBACK_REQUIRED"
	TypeTitleUpdateSucceeded    Type = "TITLE_UPDATE_SUCCEEDED"
	TypeTitleUpdateFailed       Type = "TITLE_UPDATE_FAILED"

	// document.queue
	TypeDocumentUploadRequest Type = "UPLOAD_REQUEST"
	TypeDocumentRollback      Type = "ROLLBACK"
)

// ErrUnknownEvent is returned when a message carries an event type outside the
// closed set for its queue.
var ErrUnknownEvent = errors.New("unknown event type")

// Envelope is the wire format of every saga message.
//
// LandTitleData exists for the generic creation payload: its presence alone
// marks the message as a land-title creation request, even when event_type is
// absent.
type Envelope struct {
	EventType     Type            `json:"event_type,omitempty"`
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	LandTitleData json.RawMessage `json:"land_title_data,omitempty"`
}

// --- Payload schemas ---

// Attachment describes one uploaded file accompanying a title creation.
type Attachment struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	StorageKey  string `json:"storage_key"`
	Size        int64  `json:"size"`
}

// TitleCreateData is the land_title_data creation payload.
type TitleCreateData struct {
	TitleNumber    string          `json:"title_number"`
	OwnerName      string          `json:"owner_name"`
	OwnerAddress   string          `json:"owner_address"`
	OwnerContact   string          `json:"owner_contact"`
	Location       string          `json:"location"`
	Classification string          `json:"classification"`
	AreaSqm        decimal.Decimal `json:"area_sqm"`
	Attachments    []Attachment    `json:"attachments,omitempty"`
}

// TransferCreateData requests an ownership transfer for an active title.
type TransferCreateData struct {
	TitleNumber  string          `json:"title_number"`
	BuyerName    string          `json:"buyer_name"`
	BuyerAddress string          `json:"buyer_address"`
	BuyerContact string          `json:"buyer_contact"`
	TransferFee  decimal.Decimal `json:"transfer_fee"`
}

// PaymentStatusUpdate tells the registry the target title status after a
// payment transition: PAID maps to ACTIVE, CANCELLED maps to PENDING.
type PaymentStatusUpdate struct {
	ReferenceID string `json:"reference_id"` // title_number
	Status      string `json:"status"`       // ACTIVE or PENDING
}

// PaymentConfirmed is the transfer completion path: a payment referencing a
// transfer was confirmed.
type PaymentConfirmed struct {
	TitleNumber string `json:"title_number"`
	PaymentID   string `json:"payment_id"`
}

// UploadedDocument reports one persisted document back to the registry.
type UploadedDocument struct {
	DocumentID string `json:"document_id"`
	FileName   string `json:"file_name"`
	StorageKey string `json:"storage_key"`
}

// DocumentUploaded is the document intake success reply.
type DocumentUploaded struct {
	LandTitleID       string             `json:"land_title_id"`
	UploadedDocuments []UploadedDocument `json:"uploaded_documents"`
}

// DocumentFailed is the document intake failure reply.
type DocumentFailed struct {
	LandTitleID string `json:"land_title_id"`
	Error       string `json:"error"`
}

// PaymentCreateData requests creation of a payment record.
type PaymentCreateData struct {
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	TitleNumber   string          `json:"title_number,omitempty"` // set for transfer payments
	Amount        decimal.Decimal `json:"amount"`
	PayerName     string          `json:"payer_name"`
}

// PaymentUpdateStatus requests a payment status transition.
type PaymentUpdateStatus struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"` // PAID or CANCELLED
	Actor     string `json:"actor"`
}

// PaymentRollbackRequired asks the payment service to revert the payment that
// activated a title whose ledger recording failed.
type PaymentRollbackRequired struct {
	TitleNumber string `json:"title_number"`
	Reason      string `json:"reason"`
}

// TitleUpdateResult reports the outcome of a title status transition back to
// the payment service.
type TitleUpdateResult struct {
	ReferenceID string `json:"reference_id"`
	Reason      string `json:"reason,omitempty"`
}

// DocumentUploadRequest asks the document service to persist attachments.
type DocumentUploadRequest struct {
	LandTitleID string       `json:"land_title_id"`
	Attachments []Attachment `json:"attachments"`
	UserID      string       `json:"user_id"`
}

// DocumentRollback instructs the document service to delete everything written
// for a rolled-back title.
type DocumentRollback struct {
	LandTitleID string `json:"land_title_id"`
	Reason      string `json:"reason"`
}

// --- Encoding ---

// Encode marshals an envelope for the given event type and payload.
func Encode(eventType Type, transactionID string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return json.Marshal(Envelope{
		EventType:     eventType,
		TransactionID: transactionID,
		Payload:       raw,
	})
}

// EncodeCreate marshals the generic creation envelope: the land_title_data
// field carries the payload and implies the create event.
func EncodeCreate(transactionID, userID string, data TitleCreateData) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal land_title_data: %w", err)
	}
	return json.Marshal(Envelope{
		TransactionID: transactionID,
		UserID:        userID,
		LandTitleData: raw,
	})
}

// --- Decoding (one schema per event kind, checked at the consume edge) ---

func decodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

func decodePayload[T any](env *Envelope) (T, error) {
	var payload T
	if len(env.Payload) == 0 {
		return payload, fmt.Errorf("event %s: empty payload", env.EventType)
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return payload, fmt.Errorf("event %s: decode payload: %w", env.EventType, err)
	}
	return payload, nil
}

// DecodeRegistry decodes a land.registry.queue message into its typed payload.
func DecodeRegistry(body []byte) (*Envelope, any, error) {
	env, err := decodeEnvelope(body)
	if err != nil {
		return nil, nil, err
	}

	// Generic creation payload: presence of land_title_data implies create.
	if len(env.LandTitleData) > 0 {
		var data TitleCreateData
		if err := json.Unmarshal(env.LandTitleData, &data); err != nil {
			return env, nil, fmt.Errorf("decode land_title_data: %w", err)
		}
		env.EventType = TypeLandTitleCreate
		return env, data, nil
	}

	var payload any
	switch env.EventType {
	case TypeTransferCreate:
		payload, err = decodePayload[TransferCreateData](env)
	case TypePaymentStatusUpdate:
		payload, err = decodePayload[PaymentStatusUpdate](env)
	case TypePaymentConfirmed:
		payload, err = decodePayload[PaymentConfirmed](env)
	case TypeDocumentUploaded:
		payload, err = decodePayload[DocumentUploaded](env)
	case TypeDocumentFailed:
		payload, err = decodePayload[DocumentFailed](env)
	default:
		return env, nil, fmt.Errorf("%w: %q on %s", ErrUnknownEvent, env.EventType, QueueLandRegistry)
	}
	return env, payload, err
}

// DecodePayment decodes a payment.queue message into its typed payload.
func DecodePayment(body []byte) (*Envelope, any, error) {
	env, err := decodeEnvelope(body)
	if err != nil {
		return nil, nil, err
	}

	var payload any
	switch env.EventType {
	case TypePaymentCreate:
		payload, err = decodePayload[PaymentCreateData](env)
	case TypePaymentUpdateStatus:
		payload, err = decodePayload[PaymentUpdateStatus](env)
	case TypePaymentRollbackRequired:
		payload, err = decodePayload[PaymentRollbackRequired](env)
	case TypeTitleUpdateSucceeded, TypeTitleUpdateFailed:
		payload, err = decodePayload[TitleUpdateResult](env)
	default:
		return env, nil, fmt.Errorf("%w: %q on %s", ErrUnknownEvent, env.EventType, QueuePayment)
	}
	return env, payload, err
}

// DecodeDocument decodes a document.queue message into its typed payload.
func DecodeDocument(body []byte) (*Envelope, any, error) {
	env, err := decodeEnvelope(body)
	if err != nil {
		return nil, nil, err
	}

	var payload any
	switch env.EventType {
	case TypeDocumentUploadRequest:
		payload, err = decodePayload[DocumentUploadRequest](env)
	case TypeDocumentRollback:
		payload, err = decodePayload[DocumentRollback](env)
	default:
		return env, nil, fmt.Errorf("%w: %q on %s", ErrUnknownEvent, env.EventType, QueueDocument)
	}
	return env, payload, err
}

// Publisher is the outbound port saga coordinators use to emit messages.
// The broker implementation guarantees durable, broker-acknowledged delivery.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}
