package quotes

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printq/internal/core/apperror"
	appctx "printq/internal/core/context"
	"printq/internal/core/id"
	"printq/internal/core/security"
	"printq/internal/core/types"
	"printq/internal/domain"
	"printq/internal/domain/catalogs/customer"
	"printq/internal/domain/catalogs/product"
	"printq/internal/domain/catalogs/supply"
	"printq/internal/domain/pricing"
	"printq/pkg/numerator"
)

// --- fakes ---

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

func (f *fakeProductRepo) DeactivateTemplates(ctx context.Context, productID id.ID) error { return nil }

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

type fakeCustomerRepo struct {
	existing map[id.ID]*customer.Customer
	created  []*customer.Customer
}

func (f *fakeCustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	f.created = append(f.created, c)
	return nil
}

func (f *fakeCustomerRepo) GetByID(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	if c, ok := f.existing[customerID]; ok {
		return c, nil
	}
	return nil, apperror.NewNotFound("customer", customerID)
}

func (f *fakeCustomerRepo) Exists(ctx context.Context, customerID id.ID) (bool, error) {
	_, ok := f.existing[customerID]
	return ok, nil
}

type fakeQuoteRepo struct {
	mu     sync.Mutex
	quotes map[id.ID]*Quote
	groups map[id.ID]*Group
}

func newFakeQuoteRepo() *fakeQuoteRepo {
	return &fakeQuoteRepo{
		quotes: make(map[id.ID]*Quote),
		groups: make(map[id.ID]*Group),
	}
}

func (f *fakeQuoteRepo) CreateQuote(ctx context.Context, q *Quote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *q
	f.quotes[q.ID] = &cp
	return nil
}

func (f *fakeQuoteRepo) GetQuote(ctx context.Context, quoteID id.ID) (*Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[quoteID]
	if !ok {
		return nil, apperror.NewNotFound("quote", quoteID)
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuoteRepo) GetQuoteForUpdate(ctx context.Context, quoteID id.ID) (*Quote, error) {
	return f.GetQuote(ctx, quoteID)
}

func (f *fakeQuoteRepo) GetQuoteLines(ctx context.Context, quoteID id.ID) ([]Line, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q, ok := f.quotes[quoteID]; ok {
		return q.Lines, nil
	}
	return nil, nil
}

func (f *fakeQuoteRepo) SetQuoteStatus(ctx context.Context, quoteID id.ID, status Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q, ok := f.quotes[quoteID]; ok {
		q.Status = status
	}
	return nil
}

func (f *fakeQuoteRepo) SetQuoteApproval(ctx context.Context, quoteID id.ID, approval Approval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q, ok := f.quotes[quoteID]; ok {
		q.Approval = approval
		q.Status = StatusApproved
	}
	return nil
}

func (f *fakeQuoteRepo) ListQuotes(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Quote], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []*Quote
	for _, q := range f.quotes {
		if filter.CreatedBy != "" && q.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.Status != "" && string(q.Status) != filter.Status {
			continue
		}
		cp := *q
		items = append(items, &cp)
	}
	return domain.ListResult[*Quote]{
		Items: items, TotalCount: int64(len(items)),
		Limit: filter.Limit, Offset: filter.Offset,
	}, nil
}

func (f *fakeQuoteRepo) CreateGroup(ctx context.Context, g *Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *g
	f.groups[g.ID] = &cp
	return nil
}

func (f *fakeQuoteRepo) GetGroup(ctx context.Context, groupID id.ID) (*Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return nil, apperror.NewNotFound("quote group", groupID)
	}
	cp := *g
	return &cp, nil
}

func (f *fakeQuoteRepo) GetGroupForUpdate(ctx context.Context, groupID id.ID) (*Group, error) {
	return f.GetGroup(ctx, groupID)
}

func (f *fakeQuoteRepo) GetGroupItems(ctx context.Context, groupID id.ID) ([]GroupItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.groups[groupID]; ok {
		return g.Items, nil
	}
	return nil, nil
}

func (f *fakeQuoteRepo) SetGroupStatus(ctx context.Context, groupID id.ID, status Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.groups[groupID]; ok {
		g.Status = status
	}
	return nil
}

func (f *fakeQuoteRepo) SetGroupApproval(ctx context.Context, groupID id.ID, approval Approval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.groups[groupID]; ok {
		g.Approval = approval
		g.Status = StatusApproved
	}
	return nil
}

func (f *fakeQuoteRepo) ListGroups(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Group], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []*Group
	for _, g := range f.groups {
		if filter.CreatedBy != "" && g.CreatedBy != filter.CreatedBy {
			continue
		}
		cp := *g
		items = append(items, &cp)
	}
	return domain.ListResult[*Group]{
		Items: items, TotalCount: int64(len(items)),
		Limit: filter.Limit, Offset: filter.Offset,
	}, nil
}

type fakeAuthenticator struct {
	users map[string]struct {
		password string
		sup      Supervisor
	}
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, email, password string) (*Supervisor, error) {
	u, ok := f.users[email]
	if !ok || u.password != password {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}
	sup := u.sup
	return &sup, nil
}

type noopTx struct{}

func (noopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type seqRow struct{ val int64 }

func (r *seqRow) Scan(dest ...any) error {
	if ptr, ok := dest[0].(*int64); ok {
		*ptr = r.val
	}
	return nil
}

type seqQuerier struct {
	mu  sync.Mutex
	seq map[string]int64
}

func (q *seqQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.seq == nil {
		q.seq = make(map[string]int64)
	}
	key, _ := args[0].(string)
	q.seq[key]++
	return &seqRow{val: q.seq[key]}
}

// --- fixture ---

type fixture struct {
	svc       *Service
	repo      *fakeQuoteRepo
	customers *fakeCustomerRepo
	product   *product.Product
	supply    *supply.Supply
	auth      *fakeAuthenticator
	now       time.Time
}

// newFixture builds a service around the reference product: one BOM line at
// cost 2 per unit, formula = quantity, margin 40%, waste 5%.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	prod := &product.Product{}
	prod.ID = id.New()
	prod.Name = "Business cards"

	sup := supply.NewSupply("Glossy paper", supply.UnitSheet, types.MustMoney("2"), types.NewQuantityFromFloat64(100))

	tpl := &product.Template{
		ID: id.New(), ProductID: prod.ID, Version: 1, IsActive: true,
		WastePct: 0.05, MarginPct: 0.4, OperationalPct: 0,
	}

	prodRepo := &fakeProductRepo{
		product:  prod,
		template: tpl,
		items: []product.TemplateItem{
			{ID: id.New(), TemplateID: tpl.ID, SupplyID: sup.ID, QtyFormula: "quantity"},
		},
	}
	supRepo := &fakeSupplyRepo{supplies: map[id.ID]*supply.Supply{sup.ID: sup}}
	custRepo := &fakeCustomerRepo{existing: map[id.ID]*customer.Customer{}}

	auth := &fakeAuthenticator{users: map[string]struct {
		password string
		sup      Supervisor
	}{
		"boss@printq.test":   {password: "secret", sup: Supervisor{ID: "boss", Role: security.RoleSupervisor}},
		"seller@printq.test": {password: "secret", sup: Supervisor{ID: "seller", Role: security.RoleSales}},
	}}

	repo := newFakeQuoteRepo()
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	calc := pricing.NewCalculator(
		product.NewService(prodRepo, noopTx{}),
		pricing.NewResolver(prodRepo, supRepo),
	)

	f := &fixture{repo: repo, customers: custRepo, product: prod, supply: sup, auth: auth, now: now}
	f.svc = NewService(
		repo,
		customer.NewService(custRepo),
		calc,
		NewApprovalGate(auth),
		numerator.New(&seqQuerier{}),
		noopTx{},
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func userCtx(userID string, role security.Role) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: userID,
		Email:  userID + "@printq.test",
		Role:   role,
	})
}

func fptr(v float64) *float64 { return &v }

// referenceRequest prices the fixture product at quantity 10 with basic
// finishing: costTotal 321, suggested 535.
func referenceRequest(f *fixture) ItemRequest {
	return ItemRequest{Pricing: pricing.Request{
		ProductID: f.product.ID,
		Quantity:  10,
		Finishing: pricing.FinishingBasic,
	}}
}

func TestCreateQuote_AtSuggestedPrice(t *testing.T) {
	f := newFixture(t)
	ctx := userCtx("u1", security.RoleSales)

	q, err := f.svc.CreateQuote(ctx, CreateQuoteRequest{ItemRequest: referenceRequest(f)})
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, q.Status)
	assert.Equal(t, "Q-2026-00001", q.Number)
	assert.Equal(t, "u1", q.CreatedBy)
	assert.True(t, q.CostTotal.Equal(types.MustMoney("321")), "costTotal = %s", q.CostTotal)
	assert.True(t, q.SuggestedPrice.Equal(types.MustMoney("535")))
	assert.True(t, q.PriceFinal.Equal(types.MustMoney("535")))
	assert.True(t, q.TaxAmount.IsZero())
	assert.False(t, q.Approved())
	assert.Equal(t, f.now.Add(DefaultValidity), q.ExpiresAt)

	require.Len(t, q.Lines, 1)
	assert.Equal(t, f.supply.ID, q.Lines[0].SupplyID)
	assert.True(t, q.Lines[0].LineCost.Equal(types.MustMoney("20")))
}

// Equal to suggested never triggers the gate; one cent below always does.
func TestCreateQuote_ApprovalBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := userCtx("u1", security.RoleSales)

	atSuggested := referenceRequest(f)
	atSuggested.PriceFinal = fptr(535)
	_, err := f.svc.CreateQuote(ctx, CreateQuoteRequest{ItemRequest: atSuggested})
	require.NoError(t, err)

	below := referenceRequest(f)
	below.PriceFinal = fptr(534.99)

	_, err = f.svc.CreateQuote(ctx, CreateQuoteRequest{ItemRequest: below})
	assert.True(t, apperror.IsCode(err, apperror.CodeApprovalRequired), "got %v", err)

	_, err = f.svc.CreateQuote(ctx, CreateQuoteRequest{
		ItemRequest: below,
		Supervisor:  &Credentials{Email: "boss@printq.test", Password: "wrong"},
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized), "got %v", err)

	_, err = f.svc.CreateQuote(ctx, CreateQuoteRequest{
		ItemRequest: below,
		Supervisor:  &Credentials{Email: "seller@printq.test", Password: "secret"},
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden), "got %v", err)

	q, err := f.svc.CreateQuote(ctx, CreateQuoteRequest{
		ItemRequest: below,
		Supervisor:  &Credentials{Email: "boss@printq.test", Password: "secret"},
	})
	require.NoError(t, err)
	require.True(t, q.Approved())
	assert.Equal(t, "boss", *q.ApprovedBy)
	assert.Equal(t, ApprovalReason, *q.ApprovedReason)
}

func TestCreateQuote_ElevatedRoleSkipsGate(t *testing.T) {
	f := newFixture(t)
	ctx := userCtx("boss", security.RoleSupervisor)

	req := referenceRequest(f)
	req.PriceFinal = fptr(400)

	q, err := f.svc.CreateQuote(ctx, CreateQuoteRequest{ItemRequest: req})
	require.NoError(t, err)
	assert.True(t, q.PriceFinal.Equal(types.MustMoney("400")))
	assert.False(t, q.Approved())
}

func TestCreateQuote_DiscountDerivesFinalPrice(t *testing.T) {
	f := newFixture(t)
	ctx := userCtx("boss", security.RoleAdmin)

	req := referenceRequest(f)
	req.Pricing.ApplyTax = true
	req.Discount = &Discount{Type: DiscountSenior, Pct: 10, Reason: "senior client"}

	q, err := f.svc.CreateQuote(ctx, CreateQuoteRequest{ItemRequest: req})
	require.NoError(t, err)

	// 535 * 0.9 = 481.50; tax recomputed on the resolved price.
	assert.True(t, q.PriceFinal.Equal(types.MustMoney("481.5")), "final = %s", q.PriceFinal)
	assert.True(t, q.TaxAmount.Equal(types.MustMoney("72.225")), "tax = %s", q.TaxAmount)
	assert.True(t, q.Total.Equal(types.MustMoney("553.725")), "total = %s", q.Total)
	require.NotNil(t, q.Discount)
	assert.Equal(t, DiscountSenior, q.Discount.Type)
}

func TestCreateQuote_InvalidDiscountRejected(t *testing.T) {
	f := newFixture(t)
	ctx := userCtx("u1", security.RoleSales)

	req := referenceRequest(f)
	req.Discount = &Discount{Pct: 10}

	_, err := f.svc.CreateQuote(ctx, CreateQuoteRequest{ItemRequest: req})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "got %v", err)
	assert.Empty(t, f.repo.quotes, "nothing may persist on validation failure")
}

func TestCreateGroup_TotalsAreItemSums(t *testing.T) {
	f := newFixture(t)
	ctx := userCtx("u1", security.RoleSales)

	below := referenceRequest(f)
	below.PriceFinal = fptr(500)

	g, err := f.svc.CreateGroup(ctx, CreateGroupRequest{
		Items:      []ItemRequest{referenceRequest(f), below},
		Customer:   &customer.Inline{Name: "Acme Events"},
		Supervisor: &Credentials{Email: "boss@printq.test", Password: "secret"},
	})
	require.NoError(t, err)

	assert.Equal(t, "QG-2026-00001", g.Number)
	require.Len(t, g.Items, 2)
	assert.Equal(t, 1, g.Items[0].Position)
	assert.Equal(t, 2, g.Items[1].Position)
	assert.True(t, g.PriceFinal.Equal(types.MustMoney("1035")), "final = %s", g.PriceFinal)
	assert.True(t, g.Total.Equal(types.MustMoney("1035")))
	assert.True(t, g.Approved(), "one below-suggested item gates the whole group")
	require.NotNil(t, g.CustomerID)
	require.Len(t, f.customers.created, 1)
	assert.Equal(t, "Acme Events", f.customers.created[0].Name)
	require.Len(t, g.Items[0].Lines, 1)
}

func TestCreateGroup_RequiresItems(t *testing.T) {
	f := newFixture(t)
	ctx := userCtx("u1", security.RoleSales)

	_, err := f.svc.CreateGroup(ctx, CreateGroupRequest{})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestListQuotes_SalesSeeOnlyTheirOwn(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateQuote(userCtx("u1", security.RoleSales), CreateQuoteRequest{ItemRequest: referenceRequest(f)})
	require.NoError(t, err)
	_, err = f.svc.CreateQuote(userCtx("u2", security.RoleSales), CreateQuoteRequest{ItemRequest: referenceRequest(f)})
	require.NoError(t, err)

	mine, err := f.svc.ListQuotes(userCtx("u1", security.RoleSales), domain.DefaultListFilter())
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "u1", mine.Items[0].CreatedBy)

	all, err := f.svc.ListQuotes(userCtx("boss", security.RoleSupervisor), domain.DefaultListFilter())
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}

func TestGetQuote_VisibilityForbidden(t *testing.T) {
	f := newFixture(t)

	q, err := f.svc.CreateQuote(userCtx("u1", security.RoleSales), CreateQuoteRequest{ItemRequest: referenceRequest(f)})
	require.NoError(t, err)

	_, err = f.svc.GetQuote(userCtx("u2", security.RoleSales), q.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	got, err := f.svc.GetQuote(userCtx("boss", security.RoleAdmin), q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, got.ID)
}

func TestApproveQuote(t *testing.T) {
	f := newFixture(t)

	q, err := f.svc.CreateQuote(userCtx("u1", security.RoleSales), CreateQuoteRequest{ItemRequest: referenceRequest(f)})
	require.NoError(t, err)

	_, err = f.svc.ApproveQuote(userCtx("u1", security.RoleSales), q.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	approved, err := f.svc.ApproveQuote(userCtx("boss", security.RoleSupervisor), q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, "boss", *approved.ApprovedBy)

	_, err = f.svc.ApproveQuote(userCtx("boss", security.RoleSupervisor), q.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState))
}

func TestApproveQuote_ExpiredIsWrittenBack(t *testing.T) {
	f := newFixture(t)

	q, err := f.svc.CreateQuote(userCtx("u1", security.RoleSales), CreateQuoteRequest{ItemRequest: referenceRequest(f)})
	require.NoError(t, err)

	f.now = f.now.Add(DefaultValidity + time.Hour)

	_, err = f.svc.ApproveQuote(userCtx("boss", security.RoleSupervisor), q.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeQuoteExpired), "got %v", err)

	stored, err := f.repo.GetQuote(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, stored.Status, "expiry is written even though the call fails")
}
