package customer

import (
	"context"
	"strings"

	"printq/internal/core/apperror"
	"printq/internal/core/id"
	"printq/pkg/logger"
)

// Service resolves the customer for a quote group: either an existing id
// (validated) or an inline payload that is inserted on the fly.
type Service struct {
	repo Repository
}

// NewService creates a new customer service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Inline is a customer payload supplied with a quote group.
type Inline struct {
	Name    string
	RTN     *string
	Phone   *string
	Email   *string
	Address *string
	Notes   *string
}

// Resolve returns the id of an existing customer, or creates one from the
// inline payload. Both being absent yields a nil id (walk-in customer).
func (s *Service) Resolve(ctx context.Context, customerID *id.ID, inline *Inline) (*id.ID, error) {
	if customerID != nil {
		exists, err := s.repo.Exists(ctx, *customerID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperror.NewNotFound("customer", customerID.String())
		}
		return customerID, nil
	}

	if inline == nil {
		return nil, nil
	}

	name := strings.TrimSpace(inline.Name)
	if name == "" {
		return nil, apperror.NewValidation("customer name is required").
			WithDetail("field", "customer.name")
	}

	c := NewCustomer(name)
	c.RTN = cleanText(inline.RTN)
	c.Phone = cleanText(inline.Phone)
	c.Email = cleanText(inline.Email)
	c.Address = cleanText(inline.Address)
	c.Notes = cleanText(inline.Notes)

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	logger.Info(ctx, "customer created", "id", c.ID, "name", c.Name)
	return &c.ID, nil
}

// GetByID retrieves a customer.
func (s *Service) GetByID(ctx context.Context, customerID id.ID) (*Customer, error) {
	return s.repo.GetByID(ctx, customerID)
}

func cleanText(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
