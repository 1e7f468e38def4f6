package supply

import (
	"context"

	"printq/internal/core/id"
	"printq/internal/core/types"
	"printq/internal/domain"
)

// Repository defines the interface for Supply persistence.
type Repository interface {
	// Create inserts a new supply.
	Create(ctx context.Context, s *Supply) error

	// GetByID retrieves a supply by ID.
	GetByID(ctx context.Context, supplyID id.ID) (*Supply, error)

	// GetByIDs retrieves supplies for a set of IDs. Missing IDs are simply
	// absent from the result; callers decide how to treat them.
	GetByIDs(ctx context.Context, ids []id.ID) ([]*Supply, error)

	// GetForUpdate retrieves a supply with a row lock. Must run inside a
	// transaction.
	GetForUpdate(ctx context.Context, supplyID id.ID) (*Supply, error)

	// Update modifies an existing supply with optimistic locking.
	Update(ctx context.Context, s *Supply) error

	// DeductStock atomically decrements stock, guarded by stock >= qty.
	// Returns false when the guard fails (concurrent depletion).
	DeductStock(ctx context.Context, supplyID id.ID, qty types.Quantity) (bool, error)

	// CreatePurchase persists a stock-in event.
	CreatePurchase(ctx context.Context, p *Purchase) error

	// List retrieves supplies with filtering and pagination.
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Supply], error)
}
