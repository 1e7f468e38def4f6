// Package domain provides shared business-layer types.
package domain

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search matches against name fields
	Search string

	// Status filters documents by status
	Status string

	// CreatedBy restricts results to one creator (per-seller visibility)
	CreatedBy string

	// OrderBy specifies sorting (e.g., "name", "-created_at")
	OrderBy string

	// Pagination
	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   10,
		OrderBy: "-created_at",
	}
}

// Clamp bounds the page size to 1..50, matching the API contract.
func (f *ListFilter) Clamp() {
	if f.Limit < 1 {
		f.Limit = 10
	}
	if f.Limit > 50 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
