package quotes

import (
	"context"
	"time"

	"printq/internal/core/id"
	"printq/internal/domain"
)

// Repository defines persistence for quotes and quote groups. Snapshot
// writes (document + lines) are expected to run inside a transaction
// provided by the caller.
type Repository interface {
	// CreateQuote inserts a quote with its frozen lines.
	CreateQuote(ctx context.Context, q *Quote) error

	// GetQuote retrieves a quote without lines.
	GetQuote(ctx context.Context, quoteID id.ID) (*Quote, error)

	// GetQuoteForUpdate retrieves a quote with a row lock. Must run inside
	// a transaction.
	GetQuoteForUpdate(ctx context.Context, quoteID id.ID) (*Quote, error)

	// GetQuoteLines loads the frozen lines of a quote.
	GetQuoteLines(ctx context.Context, quoteID id.ID) ([]Line, error)

	// SetQuoteStatus writes a status transition.
	SetQuoteStatus(ctx context.Context, quoteID id.ID, status Status) error

	// SetQuoteApproval records an approval on a quote together with the
	// approved status.
	SetQuoteApproval(ctx context.Context, quoteID id.ID, approval Approval) error

	// ListQuotes retrieves quotes with filtering and pagination.
	ListQuotes(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Quote], error)

	// CreateGroup inserts a group with its items and their frozen lines.
	CreateGroup(ctx context.Context, g *Group) error

	// GetGroup retrieves a group without items.
	GetGroup(ctx context.Context, groupID id.ID) (*Group, error)

	// GetGroupForUpdate retrieves a group with a row lock. Must run inside
	// a transaction.
	GetGroupForUpdate(ctx context.Context, groupID id.ID) (*Group, error)

	// GetGroupItems loads the items of a group ordered by position, lines
	// included.
	GetGroupItems(ctx context.Context, groupID id.ID) ([]GroupItem, error)

	// SetGroupStatus writes a status transition.
	SetGroupStatus(ctx context.Context, groupID id.ID, status Status) error

	// SetGroupApproval records an approval on a group together with the
	// approved status.
	SetGroupApproval(ctx context.Context, groupID id.ID, approval Approval) error

	// ListGroups retrieves groups with filtering and pagination.
	ListGroups(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Group], error)
}

// Clock abstracts time for expiry checks.
type Clock func() time.Time
