// Package supply provides the Supply catalog: raw materials tracked in a
// base unit with average-cost accounting.
package supply

import (
	"context"
	"time"

	"printq/internal/core/apperror"
	"printq/internal/core/entity"
	"printq/internal/core/id"
	"printq/internal/core/types"
)

// UnitBase is the unit of measure a supply's stock and cost are tracked in.
type UnitBase string

const (
	UnitPiece       UnitBase = "piece"
	UnitSheet       UnitBase = "sheet"
	UnitMilliliter  UnitBase = "ml"
	UnitMeter       UnitBase = "m"
	UnitSquareMeter UnitBase = "m2"
)

func isValidUnitBase(u UnitBase) bool {
	switch u {
	case UnitPiece, UnitSheet, UnitMilliliter, UnitMeter, UnitSquareMeter:
		return true
	}
	return false
}

// Supply represents a raw material. Supplies are never deleted, only updated:
// purchases raise stock and recompute the weighted-average cost, order
// conversion decrements stock.
type Supply struct {
	entity.Catalog

	// UnitBase is the tracking unit (closed set)
	UnitBase UnitBase `db:"unit_base" json:"unitBase"`

	// CostPerUnit is the weighted-average cost per base unit
	CostPerUnit types.Money `db:"cost_per_unit" json:"costPerUnit"`

	// Stock is the on-hand quantity in base units, never negative
	Stock types.Quantity `db:"stock" json:"stock"`
}

// NewSupply creates a new Supply.
func NewSupply(name string, unitBase UnitBase, costPerUnit types.Money, stock types.Quantity) *Supply {
	return &Supply{
		Catalog:     entity.NewCatalog(name),
		UnitBase:    unitBase,
		CostPerUnit: costPerUnit,
		Stock:       stock,
	}
}

// Validate implements entity.Validatable.
func (s *Supply) Validate(ctx context.Context) error {
	if err := s.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidUnitBase(s.UnitBase) {
		return apperror.NewValidation("invalid unit base").
			WithDetail("field", "unitBase").
			WithDetail("value", string(s.UnitBase))
	}

	if s.CostPerUnit.IsNegative() {
		return apperror.NewValidation("cost per unit cannot be negative").
			WithDetail("field", "costPerUnit")
	}

	if s.Stock.IsNegative() {
		return apperror.NewValidation("stock cannot be negative").
			WithDetail("field", "stock")
	}

	return nil
}

// Purchase is a stock-in event. Recording one raises the supply's stock and
// recomputes its weighted-average cost.
type Purchase struct {
	ID        id.ID          `db:"id" json:"id"`
	SupplyID  id.ID          `db:"supply_id" json:"supplyId"`
	Qty       types.Quantity `db:"qty" json:"qty"`
	TotalCost types.Money    `db:"total_cost" json:"totalCost"`
	Notes     *string        `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}
