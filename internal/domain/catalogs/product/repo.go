package product

import (
	"context"

	"printq/internal/core/id"
	"printq/internal/domain"
)

// Repository defines the interface for Product and Template persistence.
type Repository interface {
	// Create inserts a new product.
	Create(ctx context.Context, p *Product) error

	// GetByID retrieves a product by ID.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// Search finds products by name fragment or exact id.
	Search(ctx context.Context, query string, limit int) ([]*Product, error)

	// List retrieves products with filtering and pagination.
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error)

	// GetActiveTemplate returns the highest-version active template for a
	// product, or a NOT_FOUND error when none exists.
	GetActiveTemplate(ctx context.Context, productID id.ID) (*Template, error)

	// GetTemplateItems loads the item rows of a template.
	GetTemplateItems(ctx context.Context, templateID id.ID) ([]TemplateItem, error)

	// MaxTemplateVersion returns the highest version number for a product
	// (0 when the product has no templates).
	MaxTemplateVersion(ctx context.Context, productID id.ID) (int, error)

	// InsertTemplate persists a template header with its items.
	InsertTemplate(ctx context.Context, t *Template) error

	// DeactivateTemplates clears the active flag on every template of the
	// product. Runs inside the activation transaction.
	DeactivateTemplates(ctx context.Context, productID id.ID) error
}
