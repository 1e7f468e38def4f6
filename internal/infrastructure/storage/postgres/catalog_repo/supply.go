package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"printq/internal/core/id"
	"printq/internal/core/types"
	"printq/internal/domain/catalogs/supply"
	"printq/internal/infrastructure/storage/postgres"
)

const supplyTable = "cat_supplies"

// SupplyRepo implements supply.Repository.
type SupplyRepo struct {
	*BaseCatalogRepo[*supply.Supply]
	txManager *postgres.TxManager
}

// NewSupplyRepo creates a supply repository.
func NewSupplyRepo(txManager *postgres.TxManager) *SupplyRepo {
	return &SupplyRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			supplyTable,
			postgres.ExtractDBColumns[supply.Supply](),
			func() *supply.Supply { return &supply.Supply{} },
		),
		txManager: txManager,
	}
}

// GetByIDs retrieves supplies for a set of IDs. Missing IDs are absent from
// the result.
func (r *SupplyRepo) GetByIDs(ctx context.Context, ids []id.ID) ([]*supply.Supply, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := r.baseSelect().Where(squirrel.Eq{"id": ids})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*supply.Supply
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get supplies by ids: %w", err)
	}

	return items, nil
}

// DeductStock atomically decrements stock, guarded by stock >= qty.
// Returns false when the guard fails.
func (r *SupplyRepo) DeductStock(ctx context.Context, supplyID id.ID, qty types.Quantity) (bool, error) {
	q := r.Builder().
		Update(supplyTable).
		Set("stock", squirrel.Expr("stock - ?", qty)).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": supplyID}).
		Where(squirrel.GtOrEq{"stock": qty})

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build deduct: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("deduct stock: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// CreatePurchase persists a stock-in event.
func (r *SupplyRepo) CreatePurchase(ctx context.Context, p *supply.Purchase) error {
	q := r.Builder().
		Insert("doc_supply_purchases").
		Columns("id", "supply_id", "qty", "total_cost", "notes", "created_at").
		Values(p.ID, p.SupplyID, p.Qty, p.TotalCost, p.Notes, p.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}

	return nil
}

var _ supply.Repository = (*SupplyRepo)(nil)
