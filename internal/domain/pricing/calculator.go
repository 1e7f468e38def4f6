package pricing

import (
	"context"
	"math"

	"github.com/shopspring/decimal"

	"printq/internal/core/apperror"
	"printq/internal/core/id"
	"printq/internal/core/types"
	"printq/internal/domain/catalogs/product"
)

// Request are the caller-supplied pricing inputs.
type Request struct {
	ProductID id.ID          `json:"productId"`
	Quantity  float64        `json:"quantity"`
	Finishing FinishingLevel `json:"finishing"`
	ApplyTax  bool           `json:"applyTax"`
	TaxRate   *float64       `json:"taxRate,omitempty"`
}

func (r *Request) normalize() error {
	if id.IsNil(r.ProductID) {
		return apperror.NewValidation("productId is required")
	}
	if !isFinite(r.Quantity) || r.Quantity <= 0 {
		return apperror.NewValidation("quantity must be a positive number")
	}
	if r.Finishing == "" {
		r.Finishing = FinishingNone
	}
	if !r.Finishing.Valid() {
		return apperror.NewValidation("unknown finishing level").
			WithDetail("finishing", string(r.Finishing))
	}
	if r.TaxRate != nil && (!isFinite(*r.TaxRate) || *r.TaxRate < 0) {
		return apperror.NewValidation("taxRate must be a non-negative number")
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Calculator produces a full cost and price estimate for one product at one
// quantity. All money arithmetic runs in decimal.
type Calculator struct {
	products *product.Service
	resolver *Resolver
}

func NewCalculator(products *product.Service, resolver *Resolver) *Calculator {
	return &Calculator{products: products, resolver: resolver}
}

// Calculate resolves the bill of materials and rolls up the cost chain:
//
//	materials = Σ line costs
//	waste     = materials × wastePct
//	operational = (materials + waste) × operationalPct
//	costTotal = materials + waste + operational + finishing
//	suggested = marginPct >= 1 ? costTotal : costTotal / (1 − marginPct)
//
// A template with no resolvable lines prices at the finishing cost alone.
func (c *Calculator) Calculate(ctx context.Context, req Request) (*Estimate, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	prod, err := c.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	bom, err := c.resolver.Resolve(ctx, req.ProductID, req.Quantity)
	if err != nil {
		return nil, err
	}

	taxRate := DefaultTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	est := &Estimate{
		ProductID:   prod.ID,
		ProductName: prod.Name,
		Quantity:    req.Quantity,
		Finishing:   req.Finishing,
		Template: TemplateSnapshot{
			ID:             bom.Template.ID,
			Version:        bom.Template.Version,
			WastePct:       bom.Template.WastePct,
			MarginPct:      bom.Template.MarginPct,
			OperationalPct: bom.Template.OperationalPct,
		},
		Breakdown: bom.Lines,
		Totals:    rollup(bom, req.Finishing, req.ApplyTax, taxRate),
	}
	return est, nil
}

func rollup(bom *ResolvedBOM, finishing FinishingLevel, applyTax bool, taxRate float64) Totals {
	finishingCost := finishing.Cost()
	rate := decimal.NewFromFloat(taxRate)

	if bom.ItemCount == 0 {
		t := Totals{
			MaterialsCost:   types.Zero(),
			WasteCost:       types.Zero(),
			OperationalCost: types.Zero(),
			FinishingCost:   finishingCost,
			CostTotal:       finishingCost,
			MinPrice:        finishingCost,
			SuggestedPrice:  finishingCost,
			Profit:          types.Zero(),
			MarginReal:      0,
			ApplyTax:        applyTax,
			TaxRate:         taxRate,
			Tax:             types.Zero(),
			Total:           finishingCost,
		}
		if applyTax {
			t.Tax = finishingCost.Mul(rate)
			t.Total = finishingCost.Add(t.Tax)
		}
		return t
	}

	materials := types.Zero()
	for _, ln := range bom.Lines {
		materials = materials.Add(ln.LineCost)
	}

	waste := materials.Mul(decimal.NewFromFloat(bom.Template.WastePct))
	materialsPlusWaste := materials.Add(waste)
	operational := materialsPlusWaste.Mul(decimal.NewFromFloat(bom.Template.OperationalPct))
	costTotal := materialsPlusWaste.Add(operational).Add(finishingCost)

	suggested := costTotal
	if bom.Template.MarginPct < 1 {
		suggested = costTotal.Div(decimal.NewFromFloat(1 - bom.Template.MarginPct))
	}

	profit := suggested.Sub(costTotal)
	marginReal := 0.0
	if suggested.IsPositive() {
		marginReal, _ = profit.Div(suggested).Float64()
	}

	tax := types.Zero()
	total := suggested
	if applyTax {
		tax = suggested.Mul(rate)
		total = suggested.Add(tax)
	}

	return Totals{
		MaterialsCost:   materials,
		WasteCost:       waste,
		OperationalCost: operational,
		FinishingCost:   finishingCost,
		CostTotal:       costTotal,
		MinPrice:        suggested,
		SuggestedPrice:  suggested,
		Profit:          profit,
		MarginReal:      marginReal,
		ApplyTax:        applyTax,
		TaxRate:         taxRate,
		Tax:             tax,
		Total:           total,
	}
}
