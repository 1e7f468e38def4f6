package pricing

import (
	"context"

	"printq/internal/core/apperror"
	"printq/internal/core/id"
	"printq/internal/core/types"
	"printq/internal/domain/catalogs/product"
	"printq/internal/domain/catalogs/supply"
	"printq/internal/domain/pricing/formula"
	"printq/pkg/logger"
)

// Resolver turns a product's active template into a concrete bill of
// materials for a given quantity.
type Resolver struct {
	products product.Repository
	supplies supply.Repository
}

func NewResolver(products product.Repository, supplies supply.Repository) *Resolver {
	return &Resolver{products: products, supplies: supplies}
}

// ResolvedBOM is the evaluated bill of materials plus the template that
// produced it.
type ResolvedBOM struct {
	Template product.Template
	Lines    []BreakdownLine

	// ItemCount is the number of template items before missing-supply
	// skips. A template with zero items prices differently from one whose
	// supplies all vanished.
	ItemCount int
}

// Resolve loads the highest-version active template for the product,
// evaluates every item's quantity formula at the ordered quantity and prices
// each line at the supply's current cost per unit.
//
// Items referencing a supply that no longer exists are skipped with a
// warning; legacy templates carry such references and must still price.
func (r *Resolver) Resolve(ctx context.Context, productID id.ID, quantity float64) (*ResolvedBOM, error) {
	tpl, err := r.products.GetActiveTemplate(ctx, productID)
	if err != nil {
		return nil, err
	}
	items, err := r.products.GetTemplateItems(ctx, tpl.ID)
	if err != nil {
		return nil, err
	}

	bom := &ResolvedBOM{Template: *tpl, ItemCount: len(items)}
	if len(items) == 0 {
		return bom, nil
	}

	supplyIDs := make([]id.ID, 0, len(items))
	for _, it := range items {
		supplyIDs = append(supplyIDs, it.SupplyID)
	}
	found, err := r.supplies.GetByIDs(ctx, supplyIDs)
	if err != nil {
		return nil, err
	}
	supplyByID := make(map[id.ID]*supply.Supply, len(found))
	for _, s := range found {
		supplyByID[s.ID] = s
	}

	for _, it := range items {
		sup, ok := supplyByID[it.SupplyID]
		if !ok {
			logger.Warn(ctx, "template item references missing supply, skipping",
				"template_id", tpl.ID, "item_id", it.ID, "supply_id", it.SupplyID)
			continue
		}

		qty, err := formula.Eval(it.QtyFormula, quantity)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return nil, appErr.WithDetail("templateItemId", it.ID.String())
			}
			return nil, err
		}

		q := types.NewQuantityFromFloat64(qty)
		bom.Lines = append(bom.Lines, BreakdownLine{
			SupplyID:    sup.ID,
			SupplyName:  sup.Name,
			UnitBase:    string(sup.UnitBase),
			Qty:         q,
			CostPerUnit: sup.CostPerUnit,
			LineCost:    sup.CostPerUnit.Mul(q.Decimal()),
			QtyFormula:  it.QtyFormula,
		})
	}
	return bom, nil
}
