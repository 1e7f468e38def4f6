package entity

import (
	"time"
)

// Document is the base for dated, numbered business records (quotes and
// quote groups). Documents carry their creator for per-seller visibility.
type Document struct {
	BaseEntity

	// Number is the human-readable document number (e.g. Q-2026-00042)
	Number string `db:"number" json:"number"`

	// CreatedAt is the creation timestamp
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	// CreatedBy is the id of the user who created the document
	CreatedBy string `db:"created_by" json:"createdBy,omitempty"`
}

// NewDocument creates a new Document with generated ID and timestamp.
func NewDocument(createdBy string) Document {
	return Document{
		BaseEntity: NewBaseEntity(),
		CreatedAt:  time.Now().UTC(),
		CreatedBy:  createdBy,
	}
}
