package customer

import (
	"context"

	"printq/internal/core/id"
)

// Repository defines the interface for Customer persistence.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, customerID id.ID) (*Customer, error)
	Exists(ctx context.Context, customerID id.ID) (bool, error)
}
