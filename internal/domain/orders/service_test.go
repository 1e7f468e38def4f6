package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printq/internal/core/apperror"
	appctx "printq/internal/core/context"
	"printq/internal/core/entity"
	"printq/internal/core/id"
	"printq/internal/core/security"
	"printq/internal/core/types"
	"printq/internal/domain"
	"printq/internal/domain/catalogs/supply"
	"printq/internal/domain/quotes"
)

type stockRepo struct {
	supplies map[id.ID]*supply.Supply
}

func (f *stockRepo) Create(ctx context.Context, s *supply.Supply) error { return nil }

func (f *stockRepo) GetByID(ctx context.Context, supplyID id.ID) (*supply.Supply, error) {
	s, ok := f.supplies[supplyID]
	if !ok {
		return nil, apperror.NewNotFound("supply", supplyID)
	}
	return s, nil
}

func (f *stockRepo) GetByIDs(ctx context.Context, ids []id.ID) ([]*supply.Supply, error) {
	var out []*supply.Supply
	for _, sid := range ids {
		if s, ok := f.supplies[sid]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *stockRepo) GetForUpdate(ctx context.Context, supplyID id.ID) (*supply.Supply, error) {
	return f.GetByID(ctx, supplyID)
}

func (f *stockRepo) Update(ctx context.Context, s *supply.Supply) error { return nil }

func (f *stockRepo) DeductStock(ctx context.Context, supplyID id.ID, qty types.Quantity) (bool, error) {
	s, ok := f.supplies[supplyID]
	if !ok || s.Stock < qty {
		return false, nil
	}
	s.Stock -= qty
	return true, nil
}

func (f *stockRepo) CreatePurchase(ctx context.Context, p *supply.Purchase) error { return nil }

func (f *stockRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*supply.Supply], error) {
	return domain.ListResult[*supply.Supply]{}, nil
}

type quoteStore struct {
	quotes map[id.ID]*quotes.Quote
	groups map[id.ID]*quotes.Group
}

func newQuoteStore() *quoteStore {
	return &quoteStore{
		quotes: make(map[id.ID]*quotes.Quote),
		groups: make(map[id.ID]*quotes.Group),
	}
}

func (f *quoteStore) CreateQuote(ctx context.Context, q *quotes.Quote) error {
	f.quotes[q.ID] = q
	return nil
}

func (f *quoteStore) GetQuote(ctx context.Context, quoteID id.ID) (*quotes.Quote, error) {
	q, ok := f.quotes[quoteID]
	if !ok {
		return nil, apperror.NewNotFound("quote", quoteID)
	}
	return q, nil
}

func (f *quoteStore) GetQuoteForUpdate(ctx context.Context, quoteID id.ID) (*quotes.Quote, error) {
	return f.GetQuote(ctx, quoteID)
}

func (f *quoteStore) GetQuoteLines(ctx context.Context, quoteID id.ID) ([]quotes.Line, error) {
	if q, ok := f.quotes[quoteID]; ok {
		return q.Lines, nil
	}
	return nil, nil
}

func (f *quoteStore) SetQuoteStatus(ctx context.Context, quoteID id.ID, status quotes.Status) error {
	if q, ok := f.quotes[quoteID]; ok {
		q.Status = status
	}
	return nil
}

func (f *quoteStore) SetQuoteApproval(ctx context.Context, quoteID id.ID, approval quotes.Approval) error {
	if q, ok := f.quotes[quoteID]; ok {
		q.Approval = approval
	}
	return nil
}

func (f *quoteStore) ListQuotes(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*quotes.Quote], error) {
	return domain.ListResult[*quotes.Quote]{}, nil
}

func (f *quoteStore) CreateGroup(ctx context.Context, g *quotes.Group) error {
	f.groups[g.ID] = g
	return nil
}

func (f *quoteStore) GetGroup(ctx context.Context, groupID id.ID) (*quotes.Group, error) {
	g, ok := f.groups[groupID]
	if !ok {
		return nil, apperror.NewNotFound("quote group", groupID)
	}
	return g, nil
}

func (f *quoteStore) GetGroupForUpdate(ctx context.Context, groupID id.ID) (*quotes.Group, error) {
	return f.GetGroup(ctx, groupID)
}

func (f *quoteStore) GetGroupItems(ctx context.Context, groupID id.ID) ([]quotes.GroupItem, error) {
	if g, ok := f.groups[groupID]; ok {
		return g.Items, nil
	}
	return nil, nil
}

func (f *quoteStore) SetGroupStatus(ctx context.Context, groupID id.ID, status quotes.Status) error {
	if g, ok := f.groups[groupID]; ok {
		g.Status = status
	}
	return nil
}

func (f *quoteStore) SetGroupApproval(ctx context.Context, groupID id.ID, approval quotes.Approval) error {
	if g, ok := f.groups[groupID]; ok {
		g.Approval = approval
	}
	return nil
}

func (f *quoteStore) ListGroups(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*quotes.Group], error) {
	return domain.ListResult[*quotes.Group]{}, nil
}

type passAuth struct{}

func (passAuth) Authenticate(ctx context.Context, email, password string) (*quotes.Supervisor, error) {
	if email == "boss@printq.test" && password == "secret" {
		return &quotes.Supervisor{ID: "boss", Role: security.RoleSupervisor}, nil
	}
	return nil, apperror.NewUnauthorized("invalid credentials")
}

type noopTx struct{}

func (noopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func userCtx(userID string, role security.Role) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: userID, Role: role})
}

type fixture struct {
	svc   *Service
	store *quoteStore
	stock *stockRepo
	now   time.Time
	paper *supply.Supply
	ink   *supply.Supply
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	paper := supply.NewSupply("Glossy paper", supply.UnitSheet, types.MustMoney("2"), types.NewQuantityFromFloat64(100))
	ink := supply.NewSupply("Ink", supply.UnitMilliliter, types.MustMoney("1"), types.NewQuantityFromFloat64(40))

	f := &fixture{
		store: newQuoteStore(),
		stock: &stockRepo{supplies: map[id.ID]*supply.Supply{paper.ID: paper, ink.ID: ink}},
		now:   time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		paper: paper,
		ink:   ink,
	}
	f.svc = NewService(f.store, f.stock, quotes.NewApprovalGate(passAuth{}), noopTx{}).
		WithClock(func() time.Time { return f.now })
	return f
}

// draftQuote builds a frozen draft quote needing the given quantities.
func (f *fixture) draftQuote(t *testing.T, needPaper, needInk float64) *quotes.Quote {
	t.Helper()

	q := &quotes.Quote{
		Document:       entity.NewDocument("u1"),
		Status:         quotes.StatusDraft,
		SuggestedPrice: types.MustMoney("535"),
		PriceFinal:     types.MustMoney("535"),
		ExpiresAt:      f.now.Add(15 * 24 * time.Hour),
	}
	q.Number = "Q-2026-00001"
	if needPaper > 0 {
		q.Lines = append(q.Lines, quotes.Line{
			ID: id.New(), QuoteID: q.ID, SupplyID: f.paper.ID, SupplyName: f.paper.Name,
			Qty: types.NewQuantityFromFloat64(needPaper),
		})
	}
	if needInk > 0 {
		q.Lines = append(q.Lines, quotes.Line{
			ID: id.New(), QuoteID: q.ID, SupplyID: f.ink.ID, SupplyName: f.ink.Name,
			Qty: types.NewQuantityFromFloat64(needInk),
		})
	}
	require.NoError(t, f.store.CreateQuote(context.Background(), q))
	return q
}

func TestConvertQuote_DeductsStock(t *testing.T) {
	f := newFixture(t)
	q := f.draftQuote(t, 25, 10)

	converted, err := f.svc.ConvertQuote(userCtx("u1", security.RoleSales), q.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, quotes.StatusConverted, converted.Status)
	assert.InDelta(t, 75, f.paper.Stock.Float64(), 1e-9)
	assert.InDelta(t, 30, f.ink.Stock.Float64(), 1e-9)
}

func TestConvertQuote_SecondConvertFailsWithoutDoubleDeduction(t *testing.T) {
	f := newFixture(t)
	q := f.draftQuote(t, 25, 0)

	_, err := f.svc.ConvertQuote(userCtx("u1", security.RoleSales), q.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.ConvertQuote(userCtx("u1", security.RoleSales), q.ID, nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState), "got %v", err)
	assert.InDelta(t, 75, f.paper.Stock.Float64(), 1e-9, "stock must not be deducted twice")
}

func TestConvertQuote_InsufficientStockIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	// Paper is fine (25 of 100) but ink needs 10 with only 4 on hand.
	f.ink.Stock = types.NewQuantityFromFloat64(4)
	q := f.draftQuote(t, 25, 10)

	_, err := f.svc.ConvertQuote(userCtx("u1", security.RoleSales), q.ID, nil)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)

	shortfalls, ok := appErr.Details["missing"].([]apperror.Shortfall)
	require.True(t, ok, "details carry the shortfall list")
	require.Len(t, shortfalls, 1)
	assert.Equal(t, f.ink.ID.String(), shortfalls[0].SupplyID)
	assert.InDelta(t, 10, shortfalls[0].Needed, 1e-9)
	assert.InDelta(t, 4, shortfalls[0].Available, 1e-9)

	assert.InDelta(t, 100, f.paper.Stock.Float64(), 1e-9, "no supply may change")
	assert.InDelta(t, 4, f.ink.Stock.Float64(), 1e-9)
	assert.Equal(t, quotes.StatusDraft, q.Status)
}

func TestConvertQuote_ExpiredMarksAndFails(t *testing.T) {
	f := newFixture(t)
	q := f.draftQuote(t, 25, 0)
	f.now = q.ExpiresAt.Add(time.Minute)

	_, err := f.svc.ConvertQuote(userCtx("u1", security.RoleSales), q.ID, nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeQuoteExpired), "got %v", err)
	assert.Equal(t, quotes.StatusExpired, q.Status, "expiry mark is a committed side effect")
	assert.InDelta(t, 100, f.paper.Stock.Float64(), 1e-9)
}

func TestConvertQuote_ReappliesApprovalGate(t *testing.T) {
	f := newFixture(t)
	q := f.draftQuote(t, 25, 0)
	q.PriceFinal = types.MustMoney("500") // below suggested, never approved

	_, err := f.svc.ConvertQuote(userCtx("u1", security.RoleSales), q.ID, nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeApprovalRequired), "got %v", err)
	assert.InDelta(t, 100, f.paper.Stock.Float64(), 1e-9)

	converted, err := f.svc.ConvertQuote(userCtx("u1", security.RoleSales), q.ID,
		&quotes.Credentials{Email: "boss@printq.test", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, quotes.StatusConverted, converted.Status)
	require.True(t, converted.Approved())
	assert.Equal(t, "boss", *converted.ApprovedBy)
}

func TestConvertQuote_ElevatedRoleSkipsGate(t *testing.T) {
	f := newFixture(t)
	q := f.draftQuote(t, 25, 0)
	q.PriceFinal = types.MustMoney("500")

	converted, err := f.svc.ConvertQuote(userCtx("boss", security.RoleAdmin), q.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, quotes.StatusConverted, converted.Status)
}

func TestConvertQuote_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConvertQuote(userCtx("u1", security.RoleSales), id.New(), nil)
	assert.True(t, apperror.IsNotFound(err))
}

func TestConvertGroup_AcrossItems(t *testing.T) {
	f := newFixture(t)

	g := &quotes.Group{
		Document:  entity.NewDocument("u1"),
		Status:    quotes.StatusDraft,
		ExpiresAt: f.now.Add(15 * 24 * time.Hour),
	}
	g.Number = "QG-2026-00001"
	for i, need := range []float64{30, 45} {
		item := quotes.GroupItem{
			ID: id.New(), GroupID: g.ID, Position: i + 1,
			SuggestedPrice: types.MustMoney("100"),
			PriceFinal:     types.MustMoney("100"),
		}
		item.Lines = append(item.Lines, quotes.Line{
			ID: id.New(), QuoteID: item.ID, SupplyID: f.paper.ID, SupplyName: f.paper.Name,
			Qty: types.NewQuantityFromFloat64(need),
		})
		g.Items = append(g.Items, item)
	}
	require.NoError(t, f.store.CreateGroup(context.Background(), g))

	converted, err := f.svc.ConvertGroup(userCtx("u1", security.RoleSales), g.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, quotes.StatusConverted, converted.Status)
	assert.InDelta(t, 25, f.paper.Stock.Float64(), 1e-9, "75 sheets across both items")

	_, err = f.svc.ConvertGroup(userCtx("u1", security.RoleSales), g.ID, nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState))
}
