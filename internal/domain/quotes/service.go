package quotes

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"printq/internal/core/apperror"
	appctx "printq/internal/core/context"
	"printq/internal/core/entity"
	"printq/internal/core/id"
	"printq/internal/core/security"
	"printq/internal/core/tx"
	"printq/internal/core/types"
	"printq/internal/domain"
	"printq/internal/domain/catalogs/customer"
	"printq/internal/domain/pricing"
	"printq/pkg/logger"
	"printq/pkg/numerator"
)

// DefaultValidity is how long a quote stays convertible after creation.
const DefaultValidity = 15 * 24 * time.Hour

const (
	numberPrefixQuote = "Q"
	numberPrefixGroup = "QG"
)

// Service creates and reads quotes and quote groups.
type Service struct {
	repo       Repository
	customers  *customer.Service
	calculator *pricing.Calculator
	gate       *ApprovalGate
	numbers    *numerator.Service
	txManager  tx.Manager
	validity   time.Duration
	now        Clock
}

// Option tunes the service.
type Option func(*Service)

// WithValidity overrides the quote validity window.
func WithValidity(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.validity = d
		}
	}
}

// WithClock overrides time for tests.
func WithClock(c Clock) Option {
	return func(s *Service) { s.now = c }
}

func NewService(
	repo Repository,
	customers *customer.Service,
	calculator *pricing.Calculator,
	gate *ApprovalGate,
	numbers *numerator.Service,
	txManager tx.Manager,
	opts ...Option,
) *Service {
	s := &Service{
		repo:       repo,
		customers:  customers,
		calculator: calculator,
		gate:       gate,
		numbers:    numbers,
		txManager:  txManager,
		validity:   DefaultValidity,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ItemRequest prices one product inside a quote or group.
type ItemRequest struct {
	Pricing    pricing.Request `json:"pricing"`
	PriceFinal *float64        `json:"priceFinal,omitempty"`
	Discount   *Discount       `json:"discount,omitempty"`
}

// CreateQuoteRequest creates a standalone single-product quote.
type CreateQuoteRequest struct {
	ItemRequest
	Supervisor *Credentials `json:"supervisor,omitempty"`
}

// CreateGroupRequest creates a multi-product quote group.
type CreateGroupRequest struct {
	Items      []ItemRequest    `json:"items"`
	CustomerID *id.ID           `json:"customerId,omitempty"`
	Customer   *customer.Inline `json:"customer,omitempty"`
	Supervisor *Credentials     `json:"supervisor,omitempty"`
}

// pricedItem is an item after estimation, price resolution and discount
// validation.
type pricedItem struct {
	estimate *pricing.Estimate
	final    types.Money
	tax      types.Money
	total    types.Money
	discount *Discount
}

// Preview prices a product without persisting anything.
func (s *Service) Preview(ctx context.Context, req pricing.Request) (*pricing.Estimate, error) {
	return s.calculator.Calculate(ctx, req)
}

// priceItem runs the calculator and resolves the final price per the
// discount rules: an explicit positive final price wins; otherwise the
// discount percentage is applied to the suggested price; otherwise the
// suggested price stands. Tax is recomputed against the resolved price.
func (s *Service) priceItem(ctx context.Context, req ItemRequest) (*pricedItem, error) {
	est, err := s.calculator.Calculate(ctx, req.Pricing)
	if err != nil {
		return nil, err
	}

	var disc *Discount
	if req.Discount.Requested() {
		if err := req.Discount.Validate(); err != nil {
			return nil, err
		}
		disc = req.Discount
	}

	final := est.Totals.SuggestedPrice
	switch {
	case req.PriceFinal != nil:
		v := *req.PriceFinal
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return nil, apperror.NewValidation("priceFinal must be a positive number")
		}
		final = types.NewMoney(v)
	case disc != nil:
		pct := decimal.NewFromFloat(disc.Pct).Div(decimal.NewFromInt(100))
		final = est.Totals.SuggestedPrice.Mul(decimal.NewFromInt(1).Sub(pct))
	}

	tax := types.Zero()
	if est.Totals.ApplyTax {
		tax = final.Mul(decimal.NewFromFloat(est.Totals.TaxRate))
	}

	return &pricedItem{
		estimate: est,
		final:    final,
		tax:      tax,
		total:    final.Add(tax),
		discount: disc,
	}, nil
}

// CreateQuote prices a product, runs the discount and approval gates and
// persists the frozen snapshot as a draft quote.
func (s *Service) CreateQuote(ctx context.Context, req CreateQuoteRequest) (*Quote, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("authentication required")
	}

	item, err := s.priceItem(ctx, req.ItemRequest)
	if err != nil {
		return nil, err
	}

	approval, err := s.gate.Authorize(ctx, user.Role, item.final.LessThan(item.estimate.Totals.SuggestedPrice), req.Supervisor)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	number, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig(numberPrefixQuote), nil, now)
	if err != nil {
		return nil, apperror.NewDatabase(err)
	}

	q := s.buildQuote(user.UserID, number, now, item)
	if approval != nil {
		q.Approval = *approval
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateQuote(ctx, q)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "quote created",
		"quote_id", q.ID, "number", q.Number, "product_id", q.ProductID,
		"final", q.PriceFinal, "approved", q.Approved())
	return q, nil
}

func (s *Service) buildQuote(createdBy, number string, now time.Time, item *pricedItem) *Quote {
	est := item.estimate

	q := &Quote{
		Document:    entity.NewDocument(createdBy),
		ProductID:   est.ProductID,
		ProductName: est.ProductName,
		TemplateID:  est.Template.ID,
		Status:      StatusDraft,
		Quantity:    est.Quantity,
		Finishing:   est.Finishing,

		ApplyTax: est.Totals.ApplyTax,
		TaxRate:  est.Totals.TaxRate,

		WastePct:       est.Template.WastePct,
		MarginPct:      est.Template.MarginPct,
		OperationalPct: est.Template.OperationalPct,

		MaterialsCost:   est.Totals.MaterialsCost,
		WasteCost:       est.Totals.WasteCost,
		OperationalCost: est.Totals.OperationalCost,
		FinishingCost:   est.Totals.FinishingCost,
		CostTotal:       est.Totals.CostTotal,
		MinPrice:        est.Totals.MinPrice,
		SuggestedPrice:  est.Totals.SuggestedPrice,

		PriceFinal: item.final,
		TaxAmount:  item.tax,
		Total:      item.total,

		Discount:  item.discount,
		ExpiresAt: now.Add(s.validity),
	}
	q.Number = number
	q.CreatedAt = now

	for _, b := range est.Breakdown {
		q.Lines = append(q.Lines, Line{
			ID:          id.New(),
			QuoteID:     q.ID,
			SupplyID:    b.SupplyID,
			SupplyName:  b.SupplyName,
			UnitBase:    b.UnitBase,
			Qty:         b.Qty,
			CostPerUnit: b.CostPerUnit,
			LineCost:    b.LineCost,
			QtyFormula:  b.QtyFormula,
		})
	}
	return q
}

// CreateGroup prices every item, validates discounts, resolves the customer,
// runs one approval gate over the whole group and persists it in a single
// transaction.
func (s *Service) CreateGroup(ctx context.Context, req CreateGroupRequest) (*Group, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	if len(req.Items) == 0 {
		return nil, apperror.NewValidation("items are required")
	}

	priced := make([]*pricedItem, 0, len(req.Items))
	anyBelow := false
	for _, ir := range req.Items {
		item, err := s.priceItem(ctx, ir)
		if err != nil {
			return nil, err
		}
		if item.final.LessThan(item.estimate.Totals.SuggestedPrice) {
			anyBelow = true
		}
		priced = append(priced, item)
	}

	approval, err := s.gate.Authorize(ctx, user.Role, anyBelow, req.Supervisor)
	if err != nil {
		return nil, err
	}

	customerID, err := s.customers.Resolve(ctx, req.CustomerID, req.Customer)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	number, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig(numberPrefixGroup), nil, now)
	if err != nil {
		return nil, apperror.NewDatabase(err)
	}

	g := &Group{
		Document:   entity.NewDocument(user.UserID),
		CustomerID: customerID,
		Status:     StatusDraft,
		PriceFinal: types.Zero(),
		TaxAmount:  types.Zero(),
		Total:      types.Zero(),
		ExpiresAt:  now.Add(s.validity),
	}
	g.Number = number
	g.CreatedAt = now
	if approval != nil {
		g.Approval = *approval
	}

	for i, item := range priced {
		est := item.estimate
		gi := GroupItem{
			ID:          id.New(),
			GroupID:     g.ID,
			Position:    i + 1,
			ProductID:   est.ProductID,
			ProductName: est.ProductName,
			TemplateID:  est.Template.ID,
			Quantity:    est.Quantity,
			Finishing:   est.Finishing,

			ApplyTax: est.Totals.ApplyTax,
			TaxRate:  est.Totals.TaxRate,

			SuggestedPrice: est.Totals.SuggestedPrice,
			PriceFinal:     item.final,
			TaxAmount:      item.tax,
			Total:          item.total,

			Discount: item.discount,
		}
		for _, b := range est.Breakdown {
			gi.Lines = append(gi.Lines, Line{
				ID:          id.New(),
				QuoteID:     gi.ID,
				SupplyID:    b.SupplyID,
				SupplyName:  b.SupplyName,
				UnitBase:    b.UnitBase,
				Qty:         b.Qty,
				CostPerUnit: b.CostPerUnit,
				LineCost:    b.LineCost,
				QtyFormula:  b.QtyFormula,
			})
		}
		g.Items = append(g.Items, gi)

		g.PriceFinal = g.PriceFinal.Add(item.final)
		g.TaxAmount = g.TaxAmount.Add(item.tax)
		g.Total = g.Total.Add(item.total)
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateGroup(ctx, g)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "quote group created",
		"group_id", g.ID, "number", g.Number, "items", len(g.Items),
		"total", g.Total, "approved", g.Approved())
	return g, nil
}

// GetQuote loads a quote with its lines. Sales users see only their own
// quotes.
func (s *Service) GetQuote(ctx context.Context, quoteID id.ID) (*Quote, error) {
	q, err := s.repo.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisibility(ctx, q.CreatedBy); err != nil {
		return nil, err
	}
	q.Lines, err = s.repo.GetQuoteLines(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetGroup loads a group with items, lines and the attached customer.
func (s *Service) GetGroup(ctx context.Context, groupID id.ID) (*Group, *customer.Customer, error) {
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkVisibility(ctx, g.CreatedBy); err != nil {
		return nil, nil, err
	}
	g.Items, err = s.repo.GetGroupItems(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	var cust *customer.Customer
	if g.CustomerID != nil {
		cust, err = s.customers.GetByID(ctx, *g.CustomerID)
		if err != nil && !apperror.IsNotFound(err) {
			return nil, nil, err
		}
	}
	return g, cust, nil
}

// ListQuotes pages through quotes. Sales users are always restricted to
// their own documents.
func (s *Service) ListQuotes(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Quote], error) {
	s.scopeFilter(ctx, &filter)
	return s.repo.ListQuotes(ctx, filter)
}

// ListGroups pages through quote groups with the same visibility rules.
func (s *Service) ListGroups(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Group], error) {
	s.scopeFilter(ctx, &filter)
	return s.repo.ListGroups(ctx, filter)
}

func (s *Service) scopeFilter(ctx context.Context, filter *domain.ListFilter) {
	filter.Clamp()
	if appctx.GetRole(ctx) == security.RoleSales {
		filter.CreatedBy = appctx.GetUserID(ctx)
	}
}

func (s *Service) checkVisibility(ctx context.Context, createdBy string) error {
	if appctx.GetRole(ctx) == security.RoleSales && createdBy != appctx.GetUserID(ctx) {
		return apperror.NewForbidden("quote belongs to another seller")
	}
	return nil
}

// ApproveQuote moves a draft quote to approved. Supervisor or admin only;
// an expired quote is marked expired instead.
func (s *Service) ApproveQuote(ctx context.Context, quoteID id.ID) (*Quote, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	if !security.Can(user.Role, security.CapQuoteApprove) {
		return nil, apperror.NewForbidden("approval requires supervisor or admin")
	}

	var approved *Quote
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q, err := s.repo.GetQuoteForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if q.ExpiredAt(s.now()) {
			if q.Status != StatusExpired {
				if err := s.repo.SetQuoteStatus(ctx, quoteID, StatusExpired); err != nil {
					return err
				}
			}
			return apperror.NewQuoteExpired(quoteID)
		}
		if q.Status != StatusDraft {
			return apperror.NewInvalidState("quote", string(q.Status))
		}

		now := s.now().UTC()
		reason := ApprovalReason
		approval := Approval{
			ApprovedBy:     &user.UserID,
			ApprovedAt:     &now,
			ApprovedReason: &reason,
		}
		if err := s.repo.SetQuoteApproval(ctx, quoteID, approval); err != nil {
			return err
		}
		q.Status = StatusApproved
		q.Approval = approval
		approved = q
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "quote approved", "quote_id", quoteID, "approved_by", user.UserID)
	return approved, nil
}

// ApproveGroup moves a draft group to approved under the same rules.
func (s *Service) ApproveGroup(ctx context.Context, groupID id.ID) (*Group, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	if !security.Can(user.Role, security.CapQuoteApprove) {
		return nil, apperror.NewForbidden("approval requires supervisor or admin")
	}

	var approved *Group
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		g, err := s.repo.GetGroupForUpdate(ctx, groupID)
		if err != nil {
			return err
		}
		if g.ExpiredAt(s.now()) {
			if g.Status != StatusExpired {
				if err := s.repo.SetGroupStatus(ctx, groupID, StatusExpired); err != nil {
					return err
				}
			}
			return apperror.NewQuoteExpired(groupID)
		}
		if g.Status != StatusDraft {
			return apperror.NewInvalidState("quote group", string(g.Status))
		}

		now := s.now().UTC()
		reason := ApprovalReason
		approval := Approval{
			ApprovedBy:     &user.UserID,
			ApprovedAt:     &now,
			ApprovedReason: &reason,
		}
		if err := s.repo.SetGroupApproval(ctx, groupID, approval); err != nil {
			return err
		}
		g.Status = StatusApproved
		g.Approval = approval
		approved = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "quote group approved", "group_id", groupID, "approved_by", user.UserID)
	return approved, nil
}
