package catalog_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"printq/internal/core/apperror"
	"printq/internal/core/id"
	"printq/internal/domain/catalogs/product"
	"printq/internal/infrastructure/storage/postgres"
)

const (
	productTable      = "cat_products"
	templateTable     = "cat_product_templates"
	templateItemTable = "cat_product_template_items"
)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
	txManager *postgres.TxManager
}

// NewProductRepo creates a product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			productTable,
			postgres.ExtractDBColumns[product.Product](),
			func() *product.Product { return &product.Product{} },
		),
		txManager: txManager,
	}
}

// Search finds products by name fragment.
func (r *ProductRepo) Search(ctx context.Context, query string, limit int) ([]*product.Product, error) {
	q := r.baseSelect().
		Where(squirrel.ILike{"name": "%" + query + "%"}).
		OrderBy("name ASC").
		Limit(uint64(limit))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*product.Product
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	return items, nil
}

// GetActiveTemplate returns the highest-version active template for a product.
func (r *ProductRepo) GetActiveTemplate(ctx context.Context, productID id.ID) (*product.Template, error) {
	q := r.Builder().
		Select(postgres.ExtractDBColumns[product.Template]()...).
		From(templateTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("version DESC").
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t product.Template
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("active template", productID.String())
		}
		return nil, fmt.Errorf("get active template: %w", err)
	}

	return &t, nil
}

// GetTemplateItems loads the item rows of a template.
func (r *ProductRepo) GetTemplateItems(ctx context.Context, templateID id.ID) ([]product.TemplateItem, error) {
	q := r.Builder().
		Select(postgres.ExtractDBColumns[product.TemplateItem]()...).
		From(templateItemTable).
		Where(squirrel.Eq{"template_id": templateID}).
		OrderBy("id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []product.TemplateItem
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get template items: %w", err)
	}

	return items, nil
}

// MaxTemplateVersion returns the highest version number for a product.
func (r *ProductRepo) MaxTemplateVersion(ctx context.Context, productID id.ID) (int, error) {
	q := r.Builder().
		Select("COALESCE(MAX(version), 0)").
		From(templateTable).
		Where(squirrel.Eq{"product_id": productID})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var version int
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&version)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("max template version: %w", err)
	}

	return version, nil
}

// InsertTemplate persists a template header with its items.
func (r *ProductRepo) InsertTemplate(ctx context.Context, t *product.Template) error {
	q := r.Builder().
		Insert(templateTable).
		Columns("id", "product_id", "version", "is_active", "created_at",
			"waste_pct", "margin_pct", "operational_pct").
		Values(t.ID, t.ProductID, t.Version, t.IsActive, t.CreatedAt,
			t.WastePct, t.MarginPct, t.OperationalPct)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert template: %w", err)
	}

	if len(t.Items) == 0 {
		return nil
	}

	itemQ := r.Builder().
		Insert(templateItemTable).
		Columns("id", "template_id", "supply_id", "qty_formula")
	for _, item := range t.Items {
		itemQ = itemQ.Values(item.ID, item.TemplateID, item.SupplyID, item.QtyFormula)
	}

	sql, args, err = itemQ.ToSql()
	if err != nil {
		return fmt.Errorf("build item insert: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert template items: %w", err)
	}

	return nil
}

// DeactivateTemplates clears the active flag on every template of the product.
func (r *ProductRepo) DeactivateTemplates(ctx context.Context, productID id.ID) error {
	q := r.Builder().
		Update(templateTable).
		Set("is_active", false).
		Where(squirrel.Eq{"product_id": productID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("deactivate templates: %w", err)
	}

	return nil
}

var _ product.Repository = (*ProductRepo)(nil)
