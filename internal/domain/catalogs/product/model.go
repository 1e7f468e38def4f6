// Package product provides the Product catalog and its versioned
// bill-of-materials templates.
package product

import (
	"context"
	"strings"
	"time"

	"printq/internal/core/apperror"
	"printq/internal/core/entity"
	"printq/internal/core/id"
)

// Product is a sellable item. Its pricing inputs live in a history of
// ProductTemplate versions; exactly one version is active at a time.
type Product struct {
	entity.Catalog
}

// NewProduct creates a new Product.
func NewProduct(name string) *Product {
	return &Product{Catalog: entity.NewCatalog(name)}
}

// Template is one version of a product's bill-of-materials header.
// Templates are append-only: edits insert version N+1 and deactivate
// version N, never mutate in place.
type Template struct {
	ID        id.ID     `db:"id" json:"id"`
	ProductID id.ID     `db:"product_id" json:"productId"`
	Version   int       `db:"version" json:"version"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	// WastePct, MarginPct and OperationalPct are 0..1 fractions.
	WastePct       float64 `db:"waste_pct" json:"wastePct"`
	MarginPct      float64 `db:"margin_pct" json:"marginPct"`
	OperationalPct float64 `db:"operational_pct" json:"operationalPct"`

	// Items is the table part: one row per consumed supply.
	Items []TemplateItem `db:"-" json:"items"`
}

// TemplateItem binds a supply to a quantity formula evaluated per order.
type TemplateItem struct {
	ID         id.ID  `db:"id" json:"id"`
	TemplateID id.ID  `db:"template_id" json:"templateId"`
	SupplyID   id.ID  `db:"supply_id" json:"supplyId"`
	QtyFormula string `db:"qty_formula" json:"qtyFormula"`
}

// Validate implements entity.Validatable.
func (t *Template) Validate(ctx context.Context) error {
	if id.IsNil(t.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}

	if t.WastePct < 0 || t.WastePct > 1 {
		return apperror.NewValidation("waste fraction must be between 0 and 1").
			WithDetail("field", "wastePct")
	}
	if t.MarginPct < 0 || t.MarginPct > 1 {
		return apperror.NewValidation("margin fraction must be between 0 and 1").
			WithDetail("field", "marginPct")
	}
	if t.OperationalPct < 0 || t.OperationalPct > 1 {
		return apperror.NewValidation("operational fraction must be between 0 and 1").
			WithDetail("field", "operationalPct")
	}

	for i, item := range t.Items {
		if id.IsNil(item.SupplyID) {
			return apperror.NewValidation("template item supply is required").
				WithDetail("item", i)
		}
		if strings.TrimSpace(item.QtyFormula) == "" {
			return apperror.NewValidation("template item formula is required").
				WithDetail("item", i)
		}
	}

	return nil
}
