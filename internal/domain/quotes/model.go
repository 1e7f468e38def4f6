// Package quotes holds the quote and quote-group documents: frozen pricing
// snapshots that move through draft → approved → converted.
package quotes

import (
	"time"

	"printq/internal/core/entity"
	"printq/internal/core/id"
	"printq/internal/core/types"
	"printq/internal/domain/pricing"
)

// Status is the quote lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusApproved  Status = "approved"
	StatusConverted Status = "converted"
	StatusExpired   Status = "expired"
)

// Convertible reports whether a quote in this state may still become an
// order (expiry checked separately).
func (s Status) Convertible() bool {
	return s == StatusDraft || s == StatusApproved
}

// Line is a frozen bill-of-materials row. Once written it never changes,
// even if the supply's cost or name does.
type Line struct {
	ID          id.ID          `db:"id" json:"id"`
	QuoteID     id.ID          `db:"quote_id" json:"quoteId"`
	SupplyID    id.ID          `db:"supply_id" json:"supplyId"`
	SupplyName  string         `db:"supply_name" json:"supplyName"`
	UnitBase    string         `db:"unit_base" json:"unitBase"`
	Qty         types.Quantity `db:"qty" json:"qty"`
	CostPerUnit types.Money    `db:"cost_per_unit" json:"costPerUnit"`
	LineCost    types.Money    `db:"line_cost" json:"lineCost"`
	QtyFormula  string         `db:"qty_formula" json:"qtyFormula"`
}

// Approval records who authorized pricing below suggested, and why.
type Approval struct {
	ApprovedBy     *string    `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt     *time.Time `db:"approved_at" json:"approvedAt,omitempty"`
	ApprovedReason *string    `db:"approved_reason" json:"approvedReason,omitempty"`
}

// Approved reports whether an approval record is present.
func (a Approval) Approved() bool {
	return a.ApprovedBy != nil
}

// Quote is a single-product pricing snapshot. Every cost component of the
// estimate is denormalized onto the row so the quote survives template and
// supply edits unchanged.
type Quote struct {
	entity.Document

	ProductID   id.ID                  `db:"product_id" json:"productId"`
	ProductName string                 `db:"product_name" json:"productName"`
	TemplateID  id.ID                  `db:"template_id" json:"templateId"`
	Status      Status                 `db:"status" json:"status"`
	Quantity    float64                `db:"quantity" json:"quantity"`
	Finishing   pricing.FinishingLevel `db:"finishing" json:"finishing"`

	ApplyTax bool    `db:"apply_tax" json:"applyTax"`
	TaxRate  float64 `db:"tax_rate" json:"taxRate"`

	WastePct       float64 `db:"waste_pct" json:"wastePct"`
	MarginPct      float64 `db:"margin_pct" json:"marginPct"`
	OperationalPct float64 `db:"operational_pct" json:"operationalPct"`

	MaterialsCost   types.Money `db:"materials_cost" json:"materialsCost"`
	WasteCost       types.Money `db:"waste_cost" json:"wasteCost"`
	OperationalCost types.Money `db:"operational_cost" json:"operationalCost"`
	FinishingCost   types.Money `db:"finishing_cost" json:"finishingCost"`
	CostTotal       types.Money `db:"cost_total" json:"costTotal"`
	MinPrice        types.Money `db:"min_price" json:"minPrice"`
	SuggestedPrice  types.Money `db:"suggested_price" json:"suggestedPrice"`

	PriceFinal types.Money `db:"price_final" json:"priceFinal"`
	TaxAmount  types.Money `db:"tax_amount" json:"taxAmount"`
	Total      types.Money `db:"total" json:"total"`

	Discount *Discount `db:"-" json:"discount,omitempty"`

	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`

	Approval

	Lines []Line `db:"-" json:"lines,omitempty"`
}

// ExpiredAt reports whether the quote is past its validity at the given
// instant.
func (q *Quote) ExpiredAt(now time.Time) bool {
	return now.After(q.ExpiresAt)
}

// BelowSuggested reports whether the frozen final price undercuts the
// suggested price. Equality is not below.
func (q *Quote) BelowSuggested() bool {
	return q.PriceFinal.LessThan(q.SuggestedPrice)
}

// Group is a multi-product quote: one document, one optional customer,
// totals summed over the items.
type Group struct {
	entity.Document

	CustomerID *id.ID `db:"customer_id" json:"customerId,omitempty"`
	Status     Status `db:"status" json:"status"`

	PriceFinal types.Money `db:"price_final" json:"priceFinal"`
	TaxAmount  types.Money `db:"tax_amount" json:"taxAmount"`
	Total      types.Money `db:"total" json:"total"`

	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`

	Approval

	Items []GroupItem `db:"-" json:"items,omitempty"`
}

// ExpiredAt reports whether the group is past its validity.
func (g *Group) ExpiredAt(now time.Time) bool {
	return now.After(g.ExpiresAt)
}

// GroupItem is one priced product inside a group. It carries the same
// frozen snapshot a standalone quote does, minus the document envelope.
type GroupItem struct {
	ID          id.ID                  `db:"id" json:"id"`
	GroupID     id.ID                  `db:"group_id" json:"groupId"`
	Position    int                    `db:"position" json:"position"`
	ProductID   id.ID                  `db:"product_id" json:"productId"`
	ProductName string                 `db:"product_name" json:"productName"`
	TemplateID  id.ID                  `db:"template_id" json:"templateId"`
	Quantity    float64                `db:"quantity" json:"quantity"`
	Finishing   pricing.FinishingLevel `db:"finishing" json:"finishing"`

	ApplyTax bool    `db:"apply_tax" json:"applyTax"`
	TaxRate  float64 `db:"tax_rate" json:"taxRate"`

	SuggestedPrice types.Money `db:"suggested_price" json:"suggestedPrice"`
	PriceFinal     types.Money `db:"price_final" json:"priceFinal"`
	TaxAmount      types.Money `db:"tax_amount" json:"taxAmount"`
	Total          types.Money `db:"total" json:"total"`

	Discount *Discount `db:"-" json:"discount,omitempty"`

	Lines []Line `db:"-" json:"lines,omitempty"`
}

// BelowSuggested reports whether the item's final price undercuts its
// suggested price.
func (it *GroupItem) BelowSuggested() bool {
	return it.PriceFinal.LessThan(it.SuggestedPrice)
}
