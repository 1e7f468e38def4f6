package entity

import (
	"context"
	"strings"
	"time"

	"printq/internal/core/apperror"
)

// Catalog is the base for reference-data entities (supplies, products,
// customers). Catalog rows are never deleted, only updated.
type Catalog struct {
	BaseEntity

	// Name is the human-readable name
	Name string `db:"name" json:"name"`

	// CreatedAt is the creation timestamp
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewCatalog creates a new Catalog entity.
func NewCatalog(name string) Catalog {
	return Catalog{
		BaseEntity: NewBaseEntity(),
		Name:       strings.TrimSpace(name),
		CreatedAt:  time.Now().UTC(),
	}
}

// Validate implements Validatable.
func (c *Catalog) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	return nil
}
