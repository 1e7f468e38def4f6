package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printq/internal/core/apperror"
	"printq/internal/core/id"
	"printq/internal/core/types"
	"printq/internal/domain"
	"printq/internal/domain/catalogs/product"
	"printq/internal/domain/catalogs/supply"
)

type fakeProductRepo struct {
	product  *product.Product
	template *product.Template
	items    []product.TemplateItem
}

func (f *fakeProductRepo) Create(ctx context.Context, p *product.Product) error { return nil }

func (f *fakeProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	if f.product == nil || f.product.ID != productID {
		return nil, apperror.NewNotFound("product", productID)
	}
	return f.product, nil
}

func (f *fakeProductRepo) Search(ctx context.Context, query string, limit int) ([]*product.Product, error) {
	return nil, nil
}

func (f *fakeProductRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	return domain.ListResult[*product.Product]{}, nil
}

func (f *fakeProductRepo) GetActiveTemplate(ctx context.Context, productID id.ID) (*product.Template, error) {
	if f.template == nil {
		return nil, apperror.NewNotFound("product template", productID)
	}
	return f.template, nil
}

func (f *fakeProductRepo) GetTemplateItems(ctx context.Context, templateID id.ID) ([]product.TemplateItem, error) {
	return f.items, nil
}

func (f *fakeProductRepo) MaxTemplateVersion(ctx context.Context, productID id.ID) (int, error) {
	return 0, nil
}

func (f *fakeProductRepo) InsertTemplate(ctx context.Context, t *product.Template) error { return nil }

func (f *fakeProductRepo) DeactivateTemplates(ctx context.Context, productID id.ID) error {
	return nil
}

type fakeSupplyRepo struct {
	supplies map[id.ID]*supply.Supply
}

func (f *fakeSupplyRepo) Create(ctx context.Context, s *supply.Supply) error { return nil }

func (f *fakeSupplyRepo) GetByID(ctx context.Context, supplyID id.ID) (*supply.Supply, error) {
	s, ok := f.supplies[supplyID]
	if !ok {
		return nil, apperror.NewNotFound("supply", supplyID)
	}
	return s, nil
}

func (f *fakeSupplyRepo) GetByIDs(ctx context.Context, ids []id.ID) ([]*supply.Supply, error) {
	out := make([]*supply.Supply, 0, len(ids))
	for _, sid := range ids {
		if s, ok := f.supplies[sid]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSupplyRepo) GetForUpdate(ctx context.Context, supplyID id.ID) (*supply.Supply, error) {
	return f.GetByID(ctx, supplyID)
}

func (f *fakeSupplyRepo) Update(ctx context.Context, s *supply.Supply) error { return nil }

func (f *fakeSupplyRepo) DeductStock(ctx context.Context, supplyID id.ID, qty types.Quantity) (bool, error) {
	return true, nil
}

func (f *fakeSupplyRepo) CreatePurchase(ctx context.Context, p *supply.Purchase) error { return nil }

func (f *fakeSupplyRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*supply.Supply], error) {
	return domain.ListResult[*supply.Supply]{}, nil
}

type noopTx struct{}

func (noopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newSupply(name string, unit supply.UnitBase, cpu string) *supply.Supply {
	return supply.NewSupply(name, unit, types.MustMoney(cpu), 0)
}

func buildCalculator(t *testing.T, prodRepo *fakeProductRepo, supRepo *fakeSupplyRepo) *Calculator {
	t.Helper()
	svc := product.NewService(prodRepo, noopTx{})
	return NewCalculator(svc, NewResolver(prodRepo, supRepo))
}

// Legacy regression scenario: two-line BOM at 40% margin prices out to
// costTotal 321, suggested 535 and 615.25 with tax.
func TestCalculate_CostChain(t *testing.T) {
	prod := &product.Product{}
	prod.ID = id.New()
	prod.Name = "Business cards"

	paper := newSupply("Glossy paper", supply.UnitSheet, "2")
	ink := newSupply("Ink", supply.UnitMilliliter, "1")

	tpl := &product.Template{
		ID:             id.New(),
		ProductID:      prod.ID,
		Version:        3,
		IsActive:       true,
		WastePct:       0.05,
		MarginPct:      0.4,
		OperationalPct: 0,
	}

	prodRepo := &fakeProductRepo{
		product:  prod,
		template: tpl,
		items: []product.TemplateItem{
			{ID: id.New(), TemplateID: tpl.ID, SupplyID: paper.ID, QtyFormula: "ceil(quantity / 4)"},
			{ID: id.New(), TemplateID: tpl.ID, SupplyID: ink.ID, QtyFormula: "quantity * 0.5"},
		},
	}
	supRepo := &fakeSupplyRepo{supplies: map[id.ID]*supply.Supply{
		paper.ID: paper, ink.ID: ink,
	}}

	calc := buildCalculator(t, prodRepo, supRepo)
	est, err := calc.Calculate(context.Background(), Request{
		ProductID: prod.ID,
		Quantity:  100,
		Finishing: FinishingBasic,
		ApplyTax:  true,
	})
	require.NoError(t, err)

	// paper: ceil(100/4)=25 sheets * 2 = 50; ink: 50 ml * 1 = 50.
	require.Len(t, est.Breakdown, 2)
	assert.True(t, est.Totals.MaterialsCost.Equal(types.MustMoney("100")), "materials = %s", est.Totals.MaterialsCost)
	assert.True(t, est.Totals.WasteCost.Equal(types.MustMoney("5")), "waste = %s", est.Totals.WasteCost)
	assert.True(t, est.Totals.OperationalCost.IsZero())
	assert.True(t, est.Totals.FinishingCost.Equal(types.MustMoney("300")))
	assert.True(t, est.Totals.CostTotal.Equal(types.MustMoney("321")), "costTotal = %s", est.Totals.CostTotal)
	// 321 / 0.6 = 535
	assert.True(t, est.Totals.SuggestedPrice.Equal(types.MustMoney("535")), "suggested = %s", est.Totals.SuggestedPrice)
	assert.True(t, est.Totals.Tax.Equal(types.MustMoney("80.25")), "tax = %s", est.Totals.Tax)
	assert.True(t, est.Totals.Total.Equal(types.MustMoney("615.25")), "total = %s", est.Totals.Total)
	assert.InDelta(t, 0.4, est.Totals.MarginReal, 1e-9)
	assert.Equal(t, 3, est.Template.Version)
}

func TestCalculate_EmptyBOMPricesAtFinishing(t *testing.T) {
	prod := &product.Product{}
	prod.ID = id.New()
	prod.Name = "Design only"

	tpl := &product.Template{ID: id.New(), ProductID: prod.ID, Version: 1, IsActive: true,
		WastePct: 0.05, MarginPct: 0.4}

	calc := buildCalculator(t,
		&fakeProductRepo{product: prod, template: tpl},
		&fakeSupplyRepo{supplies: map[id.ID]*supply.Supply{}})

	est, err := calc.Calculate(context.Background(), Request{
		ProductID: prod.ID, Quantity: 10, Finishing: FinishingMedium,
	})
	require.NoError(t, err)
	assert.Empty(t, est.Breakdown)
	// margin is not applied on the short-circuit path
	assert.True(t, est.Totals.CostTotal.Equal(types.MustMoney("500")))
	assert.True(t, est.Totals.SuggestedPrice.Equal(types.MustMoney("500")))
	assert.True(t, est.Totals.Tax.IsZero())
	assert.True(t, est.Totals.Total.Equal(types.MustMoney("500")))
}

func TestCalculate_SkipsMissingSupply(t *testing.T) {
	prod := &product.Product{}
	prod.ID = id.New()
	prod.Name = "Flyers"

	vinyl := newSupply("Vinyl", supply.UnitSquareMeter, "10")
	ghost := id.New()

	tpl := &product.Template{ID: id.New(), ProductID: prod.ID, Version: 2, IsActive: true, MarginPct: 0.5}

	calc := buildCalculator(t,
		&fakeProductRepo{product: prod, template: tpl, items: []product.TemplateItem{
			{ID: id.New(), TemplateID: tpl.ID, SupplyID: vinyl.ID, QtyFormula: "quantity"},
			{ID: id.New(), TemplateID: tpl.ID, SupplyID: ghost, QtyFormula: "quantity * 99"},
		}},
		&fakeSupplyRepo{supplies: map[id.ID]*supply.Supply{vinyl.ID: vinyl}})

	est, err := calc.Calculate(context.Background(), Request{ProductID: prod.ID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, est.Breakdown, 1)
	assert.Equal(t, vinyl.ID, est.Breakdown[0].SupplyID)
	assert.True(t, est.Totals.MaterialsCost.Equal(types.MustMoney("30")))
}

func TestCalculate_MarginAtOrAboveOneMeansNoMarkup(t *testing.T) {
	prod := &product.Product{}
	prod.ID = id.New()
	prod.Name = "Loss leader"

	paper := newSupply("Paper", supply.UnitSheet, "1")
	tpl := &product.Template{ID: id.New(), ProductID: prod.ID, Version: 1, IsActive: true, MarginPct: 1}

	calc := buildCalculator(t,
		&fakeProductRepo{product: prod, template: tpl, items: []product.TemplateItem{
			{ID: id.New(), TemplateID: tpl.ID, SupplyID: paper.ID, QtyFormula: "quantity"},
		}},
		&fakeSupplyRepo{supplies: map[id.ID]*supply.Supply{paper.ID: paper}})

	est, err := calc.Calculate(context.Background(), Request{ProductID: prod.ID, Quantity: 7})
	require.NoError(t, err)
	assert.True(t, est.Totals.SuggestedPrice.Equal(est.Totals.CostTotal))
	assert.True(t, est.Totals.Profit.IsZero())
}

func TestCalculate_Validation(t *testing.T) {
	calc := buildCalculator(t, &fakeProductRepo{}, &fakeSupplyRepo{})

	_, err := calc.Calculate(context.Background(), Request{ProductID: id.Nil(), Quantity: 5})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = calc.Calculate(context.Background(), Request{ProductID: id.New(), Quantity: 0})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = calc.Calculate(context.Background(), Request{ProductID: id.New(), Quantity: 5, Finishing: "luxury"})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestCalculate_NoActiveTemplate(t *testing.T) {
	prod := &product.Product{}
	prod.ID = id.New()
	prod.Name = "Posters"

	calc := buildCalculator(t, &fakeProductRepo{product: prod}, &fakeSupplyRepo{})
	_, err := calc.Calculate(context.Background(), Request{ProductID: prod.ID, Quantity: 5})
	assert.True(t, apperror.IsNotFound(err))
}

func TestCalculate_InvalidFormulaSurfaces(t *testing.T) {
	prod := &product.Product{}
	prod.ID = id.New()
	prod.Name = "Banners"

	cloth := newSupply("Cloth", supply.UnitMeter, "4")
	tpl := &product.Template{ID: id.New(), ProductID: prod.ID, Version: 1, IsActive: true}

	calc := buildCalculator(t,
		&fakeProductRepo{product: prod, template: tpl, items: []product.TemplateItem{
			{ID: id.New(), TemplateID: tpl.ID, SupplyID: cloth.ID, QtyFormula: "drop(table)"},
		}},
		&fakeSupplyRepo{supplies: map[id.ID]*supply.Supply{cloth.ID: cloth}})

	_, err := calc.Calculate(context.Background(), Request{ProductID: prod.ID, Quantity: 5})
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidFormula))
}
