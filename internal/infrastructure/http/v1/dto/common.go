// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"printq/internal/core/id"
	"printq/internal/domain"
)

// ListQuery contains common list parameters.
type ListQuery struct {
	Search  string `form:"search"`
	Status  string `form:"status"`
	OrderBy string `form:"orderBy"`
	Limit   int    `form:"limit"`
	Offset  int    `form:"offset"`
}

// ToFilter converts query parameters to a domain filter with bounded
// pagination.
func (q ListQuery) ToFilter() domain.ListFilter {
	f := domain.DefaultListFilter()
	f.Search = q.Search
	f.Status = q.Status
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	f.Clamp()
	return f
}

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates an ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListResponse is a paginated collection.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse creates a list response from a domain list result.
func NewListResponse[T any](r domain.ListResult[T]) ListResponse[T] {
	return ListResponse[T]{
		Items:      r.Items,
		TotalCount: r.TotalCount,
		Limit:      r.Limit,
		Offset:     r.Offset,
	}
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
