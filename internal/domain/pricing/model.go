package pricing

import (
	"printq/internal/core/id"
	"printq/internal/core/types"
)

// FinishingLevel selects the flat finishing surcharge added to the cost
// rollup.
type FinishingLevel string

const (
	FinishingNone    FinishingLevel = "none"
	FinishingBasic   FinishingLevel = "basic"
	FinishingMedium  FinishingLevel = "medium"
	FinishingPremium FinishingLevel = "premium"
)

// finishingCost maps each level to its flat surcharge.
var finishingCost = map[FinishingLevel]types.Money{
	FinishingNone:    types.NewMoney(0),
	FinishingBasic:   types.NewMoney(300),
	FinishingMedium:  types.NewMoney(500),
	FinishingPremium: types.NewMoney(700),
}

// Valid reports whether the level belongs to the closed set.
func (f FinishingLevel) Valid() bool {
	_, ok := finishingCost[f]
	return ok
}

// Cost returns the flat surcharge for the level; unknown levels cost zero.
func (f FinishingLevel) Cost() types.Money {
	return finishingCost[f]
}

// DefaultTaxRate is applied when the caller opts into tax but gives no rate.
const DefaultTaxRate = 0.15

// BreakdownLine is one resolved bill-of-materials line: the evaluated
// quantity of a supply at the supply's current cost per unit.
type BreakdownLine struct {
	SupplyID    id.ID          `json:"supplyId"`
	SupplyName  string         `json:"supplyName"`
	UnitBase    string         `json:"unitBase"`
	Qty         types.Quantity `json:"qty"`
	CostPerUnit types.Money    `json:"costPerUnit"`
	LineCost    types.Money    `json:"lineCost"`
	QtyFormula  string         `json:"qtyFormula"`
}

// Totals is the full cost and price rollup for one product at one quantity.
type Totals struct {
	MaterialsCost   types.Money `json:"materialsCost"`
	WasteCost       types.Money `json:"wasteCost"`
	OperationalCost types.Money `json:"operationalCost"`
	FinishingCost   types.Money `json:"finishingCost"`
	CostTotal       types.Money `json:"costTotal"`
	MinPrice        types.Money `json:"minPrice"`
	SuggestedPrice  types.Money `json:"suggestedPrice"`
	Profit          types.Money `json:"profit"`
	MarginReal      float64     `json:"marginReal"`
	ApplyTax        bool        `json:"applyTax"`
	TaxRate         float64     `json:"taxRate"`
	Tax             types.Money `json:"tax"`
	Total           types.Money `json:"total"`
}

// TemplateSnapshot records which template version priced the estimate.
type TemplateSnapshot struct {
	ID             id.ID   `json:"id"`
	Version        int     `json:"version"`
	WastePct       float64 `json:"wastePct"`
	MarginPct      float64 `json:"marginPct"`
	OperationalPct float64 `json:"operationalPct"`
}

// Estimate is the calculator output: everything needed to freeze a quote.
type Estimate struct {
	ProductID   id.ID            `json:"productId"`
	ProductName string           `json:"productName"`
	Quantity    float64          `json:"quantity"`
	Finishing   FinishingLevel   `json:"finishing"`
	Template    TemplateSnapshot `json:"template"`
	Breakdown   []BreakdownLine  `json:"breakdown"`
	Totals      Totals           `json:"totals"`
}
