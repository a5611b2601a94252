// Package document implements the document intake step: persisting uploaded
// file metadata for a land title and reporting the outcome back to the
// registry.
package document

import (
	"time"

	"landregistry/internal/core/id"
)

// Document is the stored metadata of one uploaded file. The bytes themselves
// live in external file storage addressed by StorageKey.
type Document struct {
	ID            id.ID     `db:"id"`
	LandTitleID   string    `db:"land_title_id"`
	TransactionID string    `db:"transaction_id"`
	FileName      string    `db:"file_name"`
	ContentType   string    `db:"content_type"`
	StorageKey    string    `db:"storage_key"`
	Size          int64     `db:"size"`
	UploadedBy    string    `db:"uploaded_by"`
	CreatedAt     time.Time `db:"created_at"`
}
