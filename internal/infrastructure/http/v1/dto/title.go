package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"landregistry/internal/domain/title"
	"landregistry/internal/events"
)

// AttachmentRequest describes one already-uploaded file to register with the
// title. The bytes live in file storage; only metadata travels here.
type AttachmentRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type"`
	StorageKey  string `json:"storage_key" binding:"required"`
	Size        int64  `json:"size"`
}

// CreateTitleRequest is the title registration request body.
type CreateTitleRequest struct {
	TitleNumber    string              `json:"title_number" binding:"required"`
	OwnerName      string              `json:"owner_name" binding:"required"`
	OwnerAddress   string              `json:"owner_address"`
	OwnerContact   string              `json:"owner_contact"`
	Location       string              `json:"location"`
	Classification string              `json:"classification"`
	AreaSqm        decimal.Decimal     `json:"area_sqm"`
	Attachments    []AttachmentRequest `json:"attachments,omitempty"`
}

// ToData maps the request onto the creation message payload.
func (r CreateTitleRequest) ToData() events.TitleCreateData {
	attachments := make([]events.Attachment, 0, len(r.Attachments))
	for _, a := range r.Attachments {
		attachments = append(attachments, events.Attachment{
			FileName:    a.FileName,
			ContentType: a.ContentType,
			StorageKey:  a.StorageKey,
			Size:        a.Size,
		})
	}
	return events.TitleCreateData{
		TitleNumber:    r.TitleNumber,
		OwnerName:      r.OwnerName,
		OwnerAddress:   r.OwnerAddress,
		OwnerContact:   r.OwnerContact,
		Location:       r.Location,
		Classification: r.Classification,
		AreaSqm:        r.AreaSqm,
		Attachments:    attachments,
	}
}

// TitleResponse is the API view of a land title.
type TitleResponse struct {
	ID             string          `json:"id"`
	TitleNumber    string          `json:"title_number"`
	OwnerName      string          `json:"owner_name"`
	OwnerAddress   string          `json:"owner_address"`
	OwnerContact   string          `json:"owner_contact"`
	Location       string          `json:"location"`
	Classification string          `json:"classification"`
	AreaSqm        decimal.Decimal `json:"area_sqm"`
	Status         string          `json:"status"`

	BlockchainHash   *string    `json:"blockchain_hash,omitempty"`
	CancellationHash *string    `json:"cancellation_hash,omitempty"`
	ReactivationHash *string    `json:"reactivation_hash,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromTitle maps the domain entity onto the API view.
func FromTitle(t *title.LandTitle) TitleResponse {
	return TitleResponse{
		ID:             t.ID.String(),
		TitleNumber:    t.TitleNumber,
		OwnerName:      t.OwnerName,
		OwnerAddress:   t.OwnerAddress,
		OwnerContact:   t.OwnerContact,
		Location:       t.Location,
		Classification: t.Classification,
		AreaSqm:        t.AreaSqm,
		Status:         string(t.Status),

		BlockchainHash:   t.BlockchainHash,
		CancellationHash: t.CancellationHash,
		ReactivationHash: t.ReactivationHash,
		CancelledAt:      t.CancelledAt,

		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// TitleListResponse is a page of titles.
type TitleListResponse struct {
	Items []TitleResponse `json:"items"`
	Meta  ListMeta        `json:"meta"`
}
