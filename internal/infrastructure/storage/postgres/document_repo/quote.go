package document_repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"printq/internal/core/id"
	"printq/internal/domain"
	"printq/internal/domain/quotes"
	"printq/internal/infrastructure/storage/postgres"
)

const (
	quoteTable      = "doc_quotes"
	quoteLinesTable = "doc_quote_lines"
	groupTable      = "doc_quote_groups"
	groupItemsTable = "doc_quote_group_items"
	groupLinesTable = "doc_quote_group_lines"
)

var quoteLineCols = []string{
	"id", "quote_id", "supply_id", "supply_name", "unit_base",
	"qty", "cost_per_unit", "line_cost", "qty_formula",
}

// quoteRow carries the JSONB discount column next to the document fields.
type quoteRow struct {
	quotes.Quote
	DiscountJSON []byte `db:"discount"`
}

// groupItemRow mirrors quoteRow for group items.
type groupItemRow struct {
	quotes.GroupItem
	DiscountJSON []byte `db:"discount"`
}

// QuoteRepo implements quotes.Repository.
type QuoteRepo struct {
	quotesBase *BaseDocumentRepo[*quoteRow]
	groupsBase *BaseDocumentRepo[*quotes.Group]
	txManager  *postgres.TxManager
	inserter   *postgres.BatchInserter
}

// NewQuoteRepo creates a quote repository.
func NewQuoteRepo(txManager *postgres.TxManager) *QuoteRepo {
	return &QuoteRepo{
		quotesBase: NewBaseDocumentRepo(
			txManager,
			quoteTable,
			postgres.ExtractDBColumns[quoteRow](),
			func() *quoteRow { return &quoteRow{} },
		),
		groupsBase: NewBaseDocumentRepo(
			txManager,
			groupTable,
			postgres.ExtractDBColumns[quotes.Group](),
			func() *quotes.Group { return &quotes.Group{} },
		),
		txManager: txManager,
		inserter:  postgres.NewBatchInserter(txManager),
	}
}

func marshalDiscount(d *quotes.Discount) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func unmarshalDiscount(raw []byte) (*quotes.Discount, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var d quotes.Discount
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("unmarshal discount: %w", err)
	}
	return &d, nil
}

// CreateQuote inserts a quote with its frozen lines. Must run inside a
// transaction: lines go through the COPY protocol which requires one.
func (r *QuoteRepo) CreateQuote(ctx context.Context, q *quotes.Quote) error {
	discountJSON, err := marshalDiscount(q.Discount)
	if err != nil {
		return fmt.Errorf("marshal discount: %w", err)
	}

	row := &quoteRow{Quote: *q, DiscountJSON: discountJSON}
	if err := r.quotesBase.Create(ctx, row); err != nil {
		return err
	}

	return r.insertLines(ctx, quoteLinesTable, q.Lines)
}

func (r *QuoteRepo) insertLines(ctx context.Context, table string, lines []quotes.Line) error {
	if len(lines) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []any{
			l.ID, l.QuoteID, l.SupplyID, l.SupplyName, l.UnitBase,
			l.Qty.Int64Scaled(), l.CostPerUnit.String(), l.LineCost.String(), l.QtyFormula,
		})
	}

	if _, err := r.inserter.CopyFromSlice(ctx, table, quoteLineCols, rows); err != nil {
		return fmt.Errorf("copy lines into %s: %w", table, err)
	}

	return nil
}

// GetQuote retrieves a quote without lines.
func (r *QuoteRepo) GetQuote(ctx context.Context, quoteID id.ID) (*quotes.Quote, error) {
	row, err := r.quotesBase.GetByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	return r.fromRow(row)
}

// GetQuoteForUpdate retrieves a quote with a row lock.
func (r *QuoteRepo) GetQuoteForUpdate(ctx context.Context, quoteID id.ID) (*quotes.Quote, error) {
	row, err := r.quotesBase.GetForUpdate(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	return r.fromRow(row)
}

func (r *QuoteRepo) fromRow(row *quoteRow) (*quotes.Quote, error) {
	q := row.Quote
	discount, err := unmarshalDiscount(row.DiscountJSON)
	if err != nil {
		return nil, err
	}
	q.Discount = discount
	return &q, nil
}

// GetQuoteLines loads the frozen lines of a quote.
func (r *QuoteRepo) GetQuoteLines(ctx context.Context, quoteID id.ID) ([]quotes.Line, error) {
	return r.loadLines(ctx, quoteLinesTable, []id.ID{quoteID})
}

func (r *QuoteRepo) loadLines(ctx context.Context, table string, ownerIDs []id.ID) ([]quotes.Line, error) {
	q := r.quotesBase.Builder().
		Select(quoteLineCols...).
		From(table).
		Where(squirrel.Eq{"quote_id": ownerIDs}).
		OrderBy("id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []quotes.Line
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("load lines from %s: %w", table, err)
	}

	return lines, nil
}

// SetQuoteStatus writes a status transition.
func (r *QuoteRepo) SetQuoteStatus(ctx context.Context, quoteID id.ID, status quotes.Status) error {
	return r.quotesBase.SetStatus(ctx, quoteID, string(status))
}

// SetQuoteApproval records an approval together with the approved status.
func (r *QuoteRepo) SetQuoteApproval(ctx context.Context, quoteID id.ID, approval quotes.Approval) error {
	return r.setApproval(ctx, quoteTable, quoteID, approval)
}

func (r *QuoteRepo) setApproval(ctx context.Context, table string, docID id.ID, approval quotes.Approval) error {
	q := r.quotesBase.Builder().
		Update(table).
		Set("approved_by", approval.ApprovedBy).
		Set("approved_at", approval.ApprovedAt).
		Set("approved_reason", approval.ApprovedReason).
		Set("status", string(quotes.StatusApproved)).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": docID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("set approval on %s: %w", table, err)
	}

	return nil
}

// ListQuotes retrieves quotes with filtering and pagination.
func (r *QuoteRepo) ListQuotes(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*quotes.Quote], error) {
	rows, err := r.quotesBase.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*quotes.Quote]{}, err
	}

	result := domain.ListResult[*quotes.Quote]{
		TotalCount: rows.TotalCount,
		Limit:      rows.Limit,
		Offset:     rows.Offset,
		Items:      make([]*quotes.Quote, 0, len(rows.Items)),
	}
	for _, row := range rows.Items {
		q, err := r.fromRow(row)
		if err != nil {
			return domain.ListResult[*quotes.Quote]{}, err
		}
		result.Items = append(result.Items, q)
	}

	return result, nil
}

// CreateGroup inserts a group with its items and their frozen lines.
func (r *QuoteRepo) CreateGroup(ctx context.Context, g *quotes.Group) error {
	if err := r.groupsBase.Create(ctx, g); err != nil {
		return err
	}

	for _, item := range g.Items {
		if err := r.insertGroupItem(ctx, item); err != nil {
			return err
		}
	}

	return nil
}

func (r *QuoteRepo) insertGroupItem(ctx context.Context, item quotes.GroupItem) error {
	discountJSON, err := marshalDiscount(item.Discount)
	if err != nil {
		return fmt.Errorf("marshal discount: %w", err)
	}

	data := postgres.StructToMap(groupItemRow{GroupItem: item, DiscountJSON: discountJSON})

	q := r.quotesBase.Builder().
		Insert(groupItemsTable).
		SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert group item: %w", err)
	}

	// Group lines reference their item through the quote_id column.
	lines := make([]quotes.Line, len(item.Lines))
	copy(lines, item.Lines)
	for i := range lines {
		lines[i].QuoteID = item.ID
	}

	return r.insertLines(ctx, groupLinesTable, lines)
}

// GetGroup retrieves a group without items.
func (r *QuoteRepo) GetGroup(ctx context.Context, groupID id.ID) (*quotes.Group, error) {
	return r.groupsBase.GetByID(ctx, groupID)
}

// GetGroupForUpdate retrieves a group with a row lock.
func (r *QuoteRepo) GetGroupForUpdate(ctx context.Context, groupID id.ID) (*quotes.Group, error) {
	return r.groupsBase.GetForUpdate(ctx, groupID)
}

// GetGroupItems loads the items of a group ordered by position, lines
// included.
func (r *QuoteRepo) GetGroupItems(ctx context.Context, groupID id.ID) ([]quotes.GroupItem, error) {
	q := r.quotesBase.Builder().
		Select(postgres.ExtractDBColumns[groupItemRow]()...).
		From(groupItemsTable).
		Where(squirrel.Eq{"group_id": groupID}).
		OrderBy("position ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*groupItemRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("get group items: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	itemIDs := make([]id.ID, 0, len(rows))
	for _, row := range rows {
		itemIDs = append(itemIDs, row.ID)
	}

	lines, err := r.loadLines(ctx, groupLinesTable, itemIDs)
	if err != nil {
		return nil, err
	}

	linesByItem := make(map[id.ID][]quotes.Line, len(rows))
	for _, l := range lines {
		linesByItem[l.QuoteID] = append(linesByItem[l.QuoteID], l)
	}

	items := make([]quotes.GroupItem, 0, len(rows))
	for _, row := range rows {
		item := row.GroupItem
		discount, err := unmarshalDiscount(row.DiscountJSON)
		if err != nil {
			return nil, err
		}
		item.Discount = discount
		item.Lines = linesByItem[item.ID]
		items = append(items, item)
	}

	return items, nil
}

// SetGroupStatus writes a status transition.
func (r *QuoteRepo) SetGroupStatus(ctx context.Context, groupID id.ID, status quotes.Status) error {
	return r.groupsBase.SetStatus(ctx, groupID, string(status))
}

// SetGroupApproval records an approval together with the approved status.
func (r *QuoteRepo) SetGroupApproval(ctx context.Context, groupID id.ID, approval quotes.Approval) error {
	return r.setApproval(ctx, groupTable, groupID, approval)
}

// ListGroups retrieves groups with filtering and pagination.
func (r *QuoteRepo) ListGroups(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*quotes.Group], error) {
	return r.groupsBase.List(ctx, filter)
}

// compile-time interface check
var _ quotes.Repository = (*QuoteRepo)(nil)
