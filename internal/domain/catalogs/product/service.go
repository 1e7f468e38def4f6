package product

import (
	"context"
	"fmt"
	"time"

	"printq/internal/core/id"
	"printq/internal/core/tx"
	"printq/internal/domain"
	"printq/pkg/logger"
)

// Service provides business operations for products and their templates.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new product service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// TemplateInput carries the editable part of a template.
type TemplateInput struct {
	WastePct       float64
	MarginPct      float64
	OperationalPct float64
	Items          []TemplateItem
}

// Create registers a product together with its version-1 active template.
func (s *Service) Create(ctx context.Context, p *Product, tpl TemplateInput) (*Template, error) {
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	template := s.buildTemplate(p.ID, 1, tpl)
	if err := template.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		if err := s.repo.InsertTemplate(ctx, template); err != nil {
			return fmt.Errorf("insert template: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "product created",
		"id", p.ID,
		"name", p.Name,
		"template_id", template.ID,
	)
	return template, nil
}

// UpdateTemplate inserts version N+1 and deactivates version N in one
// atomic swap, so there is never a window with zero or two active templates.
func (s *Service) UpdateTemplate(ctx context.Context, productID id.ID, tpl TemplateInput) (*Template, error) {
	if _, err := s.repo.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	var template *Template
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		maxVersion, err := s.repo.MaxTemplateVersion(ctx, productID)
		if err != nil {
			return fmt.Errorf("max template version: %w", err)
		}

		template = s.buildTemplate(productID, maxVersion+1, tpl)
		if err := template.Validate(ctx); err != nil {
			return err
		}

		if err := s.repo.DeactivateTemplates(ctx, productID); err != nil {
			return fmt.Errorf("deactivate templates: %w", err)
		}
		if err := s.repo.InsertTemplate(ctx, template); err != nil {
			return fmt.Errorf("insert template: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "template version activated",
		"product_id", productID,
		"version", template.Version,
	)
	return template, nil
}

// GetByID retrieves a product.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// Search finds products by name fragment or exact id.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*Product, error) {
	if limit <= 0 || limit > 25 {
		limit = 8
	}
	return s.repo.Search(ctx, query, limit)
}

// List retrieves products with filtering.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error) {
	filter.Clamp()
	return s.repo.List(ctx, filter)
}

// ActiveTemplate returns the currently active template with its items.
func (s *Service) ActiveTemplate(ctx context.Context, productID id.ID) (*Template, error) {
	tpl, err := s.repo.GetActiveTemplate(ctx, productID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetTemplateItems(ctx, tpl.ID)
	if err != nil {
		return nil, fmt.Errorf("get template items: %w", err)
	}
	tpl.Items = items
	return tpl, nil
}

func (s *Service) buildTemplate(productID id.ID, version int, tpl TemplateInput) *Template {
	t := &Template{
		ID:             id.New(),
		ProductID:      productID,
		Version:        version,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
		WastePct:       tpl.WastePct,
		MarginPct:      tpl.MarginPct,
		OperationalPct: tpl.OperationalPct,
		Items:          make([]TemplateItem, 0, len(tpl.Items)),
	}
	for _, item := range tpl.Items {
		t.Items = append(t.Items, TemplateItem{
			ID:         id.New(),
			TemplateID: t.ID,
			SupplyID:   item.SupplyID,
			QtyFormula: item.QtyFormula,
		})
	}
	return t
}
