package supply

import (
	"context"
	"fmt"
	"time"

	"printq/internal/core/apperror"
	"printq/internal/core/id"
	"printq/internal/core/tx"
	"printq/internal/core/types"
	"printq/internal/domain"
	"printq/pkg/logger"
)

// Service provides business operations for supplies.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new supply service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// Create registers a new supply.
func (s *Service) Create(ctx context.Context, sup *Supply) error {
	if err := sup.Validate(ctx); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, sup); err != nil {
		return fmt.Errorf("create supply: %w", err)
	}

	logger.Info(ctx, "supply created", "id", sup.ID, "name", sup.Name)
	return nil
}

// GetByID retrieves a supply.
func (s *Service) GetByID(ctx context.Context, supplyID id.ID) (*Supply, error) {
	return s.repo.GetByID(ctx, supplyID)
}

// List retrieves supplies with filtering.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Supply], error) {
	filter.Clamp()
	return s.repo.List(ctx, filter)
}

// PurchaseRequest describes a stock-in event.
type PurchaseRequest struct {
	SupplyID  id.ID
	Qty       types.Quantity
	TotalCost types.Money
	Notes     *string
}

// RecordPurchase raises stock and recomputes the weighted-average cost:
//
//	newCost = (stock*cost + totalCost) / (stock + qty)
//
// The read-modify-write runs under a row lock so concurrent purchases and
// conversions cannot lose updates.
func (s *Service) RecordPurchase(ctx context.Context, req PurchaseRequest) (*Supply, *Purchase, error) {
	if !req.Qty.IsPositive() {
		return nil, nil, apperror.NewValidation("purchase qty must be positive").
			WithDetail("field", "qty")
	}
	if req.TotalCost.IsNegative() {
		return nil, nil, apperror.NewValidation("purchase total cost cannot be negative").
			WithDetail("field", "totalCost")
	}

	var (
		updated  *Supply
		purchase *Purchase
	)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sup, err := s.repo.GetForUpdate(ctx, req.SupplyID)
		if err != nil {
			return err
		}

		newStock := sup.Stock + req.Qty
		if newStock.IsZero() {
			sup.CostPerUnit = types.Zero()
		} else {
			carried := sup.CostPerUnit.Mul(sup.Stock.Decimal())
			sup.CostPerUnit = carried.Add(req.TotalCost).Div(newStock.Decimal())
		}
		sup.Stock = newStock

		purchase = &Purchase{
			ID:        id.New(),
			SupplyID:  sup.ID,
			Qty:       req.Qty,
			TotalCost: req.TotalCost,
			Notes:     req.Notes,
			CreatedAt: time.Now().UTC(),
		}

		if err := s.repo.CreatePurchase(ctx, purchase); err != nil {
			return fmt.Errorf("create purchase: %w", err)
		}
		if err := s.repo.Update(ctx, sup); err != nil {
			return fmt.Errorf("update supply: %w", err)
		}

		updated = sup
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "purchase recorded",
		"supply_id", req.SupplyID,
		"qty", req.Qty,
		"new_stock", updated.Stock,
	)

	return updated, purchase, nil
}
