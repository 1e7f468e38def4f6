// Package orders converts approved quotes into orders, deducting raw
// material stock atomically.
package orders

import (
	"bytes"
	"context"
	"sort"
	"time"

	"printq/internal/core/apperror"
	appctx "printq/internal/core/context"
	"printq/internal/core/id"
	"printq/internal/core/security"
	"printq/internal/core/tx"
	"printq/internal/core/types"
	"printq/internal/domain/catalogs/supply"
	"printq/internal/domain/quotes"
	"printq/pkg/logger"
)

// Service runs the quote → order transition.
type Service struct {
	quotes   quotes.Repository
	supplies supply.Repository
	gate     *quotes.ApprovalGate
	tx       tx.Manager
	now      func() time.Time
}

func NewService(quoteRepo quotes.Repository, supplyRepo supply.Repository, gate *quotes.ApprovalGate, txManager tx.Manager) *Service {
	return &Service{
		quotes:   quoteRepo,
		supplies: supplyRepo,
		gate:     gate,
		tx:       txManager,
		now:      time.Now,
	}
}

// WithClock overrides time for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ConvertQuote deducts the quote's frozen line quantities from live stock
// and marks the quote converted, all in one transaction.
//
// An expired quote is marked expired and the conversion fails; that status
// write is committed on purpose. If any supply lacks stock the transaction
// rolls back with the full shortfall list and nothing changes.
func (s *Service) ConvertQuote(ctx context.Context, quoteID id.ID, creds *quotes.Credentials) (*quotes.Quote, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	if !security.Can(user.Role, security.CapQuoteConvert) {
		return nil, apperror.NewForbidden("conversion not allowed for this role")
	}

	var (
		converted *quotes.Quote
		convErr   error
	)
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		q, err := s.quotes.GetQuoteForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}

		if q.ExpiredAt(s.now()) {
			// Commit the expiry mark even though the conversion fails.
			if q.Status != quotes.StatusExpired {
				if err := s.quotes.SetQuoteStatus(ctx, quoteID, quotes.StatusExpired); err != nil {
					return err
				}
			}
			convErr = apperror.NewQuoteExpired(quoteID)
			return nil
		}
		if !q.Status.Convertible() {
			return apperror.NewInvalidState("quote", string(q.Status))
		}

		// A sales caller converting unapproved below-suggested pricing
		// must clear the gate now, even if creation predates the rule.
		if user.Role == security.RoleSales && q.BelowSuggested() && !q.Approved() {
			approval, err := s.gate.Authorize(ctx, user.Role, true, creds)
			if err != nil {
				return err
			}
			if approval != nil {
				if err := s.quotes.SetQuoteApproval(ctx, quoteID, *approval); err != nil {
					return err
				}
				q.Approval = *approval
			}
		}

		lines, err := s.quotes.GetQuoteLines(ctx, quoteID)
		if err != nil {
			return err
		}
		if err := s.deductLines(ctx, lines); err != nil {
			return err
		}

		if err := s.quotes.SetQuoteStatus(ctx, quoteID, quotes.StatusConverted); err != nil {
			return err
		}
		q.Status = quotes.StatusConverted
		converted = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	if convErr != nil {
		return nil, convErr
	}

	logger.Info(ctx, "quote converted", "quote_id", quoteID, "number", converted.Number)
	return converted, nil
}

// ConvertGroup converts every item of a quote group under one transaction.
func (s *Service) ConvertGroup(ctx context.Context, groupID id.ID, creds *quotes.Credentials) (*quotes.Group, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	if !security.Can(user.Role, security.CapQuoteConvert) {
		return nil, apperror.NewForbidden("conversion not allowed for this role")
	}

	var (
		converted *quotes.Group
		convErr   error
	)
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		g, err := s.quotes.GetGroupForUpdate(ctx, groupID)
		if err != nil {
			return err
		}

		if g.ExpiredAt(s.now()) {
			if g.Status != quotes.StatusExpired {
				if err := s.quotes.SetGroupStatus(ctx, groupID, quotes.StatusExpired); err != nil {
					return err
				}
			}
			convErr = apperror.NewQuoteExpired(groupID)
			return nil
		}
		if !g.Status.Convertible() {
			return apperror.NewInvalidState("quote group", string(g.Status))
		}

		items, err := s.quotes.GetGroupItems(ctx, groupID)
		if err != nil {
			return err
		}

		anyBelow := false
		var lines []quotes.Line
		for _, it := range items {
			if it.BelowSuggested() {
				anyBelow = true
			}
			lines = append(lines, it.Lines...)
		}

		if user.Role == security.RoleSales && anyBelow && !g.Approved() {
			approval, err := s.gate.Authorize(ctx, user.Role, true, creds)
			if err != nil {
				return err
			}
			if approval != nil {
				if err := s.quotes.SetGroupApproval(ctx, groupID, *approval); err != nil {
					return err
				}
				g.Approval = *approval
			}
		}

		if err := s.deductLines(ctx, lines); err != nil {
			return err
		}

		if err := s.quotes.SetGroupStatus(ctx, groupID, quotes.StatusConverted); err != nil {
			return err
		}
		g.Status = quotes.StatusConverted
		g.Items = items
		converted = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	if convErr != nil {
		return nil, convErr
	}

	logger.Info(ctx, "quote group converted", "group_id", groupID, "number", converted.Number)
	return converted, nil
}

// deductLines aggregates required quantities per supply, locks the supply
// rows in id order to avoid deadlocks between concurrent conversions,
// collects every shortfall against live stock and then deducts. Runs inside
// the conversion transaction, so any error rolls everything back.
func (s *Service) deductLines(ctx context.Context, lines []quotes.Line) error {
	needed := make(map[id.ID]types.Quantity)
	names := make(map[id.ID]string)
	for _, ln := range lines {
		needed[ln.SupplyID] += ln.Qty
		names[ln.SupplyID] = ln.SupplyName
	}
	if len(needed) == 0 {
		return nil
	}

	ids := make([]id.ID, 0, len(needed))
	for sid := range needed {
		ids = append(ids, sid)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})

	var shortfalls []apperror.Shortfall
	for _, sid := range ids {
		sup, err := s.supplies.GetForUpdate(ctx, sid)
		if err != nil {
			if apperror.IsNotFound(err) {
				// A frozen line can outlive its supply; treat it as
				// zero stock rather than converting on a phantom.
				shortfalls = append(shortfalls, apperror.Shortfall{
					SupplyID:   sid.String(),
					SupplyName: names[sid],
					Needed:     needed[sid].Float64(),
					Available:  0,
				})
				continue
			}
			return err
		}
		if sup.Stock < needed[sid] {
			shortfalls = append(shortfalls, apperror.Shortfall{
				SupplyID:   sid.String(),
				SupplyName: sup.Name,
				Needed:     needed[sid].Float64(),
				Available:  sup.Stock.Float64(),
			})
		}
	}
	if len(shortfalls) > 0 {
		return apperror.NewInsufficientStock(shortfalls)
	}

	for _, sid := range ids {
		ok, err := s.supplies.DeductStock(ctx, sid, needed[sid])
		if err != nil {
			return err
		}
		if !ok {
			// Rows are locked, so the guard can only fail if someone
			// slipped between lock and update; roll back everything.
			return apperror.NewConcurrentModification("supply", sid)
		}
	}
	return nil
}
