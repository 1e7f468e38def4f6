package dto

import (
	"printq/internal/core/id"
	"printq/internal/core/types"
	"printq/internal/domain/catalogs/customer"
	"printq/internal/domain/catalogs/product"
	"printq/internal/domain/catalogs/supply"
)

// CreateSupplyRequest for POST /supplies.
type CreateSupplyRequest struct {
	Name        string  `json:"name" binding:"required"`
	UnitBase    string  `json:"unitBase" binding:"required"`
	CostPerUnit float64 `json:"costPerUnit"`
	Stock       float64 `json:"stock"`
}

// ToSupply converts to a domain supply.
func (r CreateSupplyRequest) ToSupply() *supply.Supply {
	return supply.NewSupply(
		r.Name,
		supply.UnitBase(r.UnitBase),
		types.NewMoney(r.CostPerUnit),
		types.NewQuantityFromFloat64(r.Stock),
	)
}

// PurchaseRequest for POST /supplies/:id/purchases.
type PurchaseRequest struct {
	Qty       float64 `json:"qty" binding:"required"`
	TotalCost float64 `json:"totalCost"`
	Notes     *string `json:"notes,omitempty"`
}

// ToRequest converts to a domain purchase request.
func (r PurchaseRequest) ToRequest(supplyID id.ID) supply.PurchaseRequest {
	return supply.PurchaseRequest{
		SupplyID:  supplyID,
		Qty:       types.NewQuantityFromFloat64(r.Qty),
		TotalCost: types.NewMoney(r.TotalCost),
		Notes:     r.Notes,
	}
}

// PurchaseResponse pairs the recorded purchase with the updated supply.
type PurchaseResponse struct {
	Purchase *supply.Purchase `json:"purchase"`
	Supply   *supply.Supply   `json:"supply"`
}

// TemplateItemRequest is one bill-of-materials row.
type TemplateItemRequest struct {
	SupplyID   id.ID  `json:"supplyId" binding:"required"`
	QtyFormula string `json:"qtyFormula" binding:"required"`
}

// TemplateRequest carries the cost/margin knobs and material rows.
type TemplateRequest struct {
	WastePct       float64               `json:"wastePct"`
	MarginPct      float64               `json:"marginPct"`
	OperationalPct float64               `json:"operationalPct"`
	Items          []TemplateItemRequest `json:"items" binding:"required"`
}

// ToInput converts to domain template input.
func (r TemplateRequest) ToInput() product.TemplateInput {
	items := make([]product.TemplateItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, product.TemplateItem{
			SupplyID:   it.SupplyID,
			QtyFormula: it.QtyFormula,
		})
	}
	return product.TemplateInput{
		WastePct:       r.WastePct,
		MarginPct:      r.MarginPct,
		OperationalPct: r.OperationalPct,
		Items:          items,
	}
}

// CreateProductRequest for POST /products.
type CreateProductRequest struct {
	Name     string          `json:"name" binding:"required"`
	Template TemplateRequest `json:"template" binding:"required"`
}

// ProductResponse pairs a product with a template version.
type ProductResponse struct {
	Product  *product.Product  `json:"product"`
	Template *product.Template `json:"template,omitempty"`
}

// CustomerRequest is an inline customer payload.
type CustomerRequest struct {
	Name    string  `json:"name" binding:"required"`
	RTN     *string `json:"rtn,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Address *string `json:"address,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// ToInline converts to the domain inline payload.
func (r *CustomerRequest) ToInline() *customer.Inline {
	if r == nil {
		return nil
	}
	return &customer.Inline{
		Name:    r.Name,
		RTN:     r.RTN,
		Phone:   r.Phone,
		Email:   r.Email,
		Address: r.Address,
		Notes:   r.Notes,
	}
}
