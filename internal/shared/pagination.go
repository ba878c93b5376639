package shared

import (
	"net/http"
	"strconv"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Page holds limit/offset pagination parsed from query parameters.
type Page struct {
	Limit  int
	Offset int
}

// PageFromRequest parses `limit` and `offset`, applying defaults and bounds.
func PageFromRequest(r *http.Request) Page {
	page := Page{Limit: defaultLimit}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			page.Limit = parsed
		}
	}
	if page.Limit > maxLimit {
		page.Limit = maxLimit
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			page.Offset = parsed
		}
	}
	return page
}

// ListResult wraps a page of records with the unpaginated total.
type ListResult[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewListResult builds a ListResult, never returning a nil slice.
func NewListResult[T any](data []T, total int, page Page) ListResult[T] {
	if data == nil {
		data = []T{}
	}
	return ListResult[T]{Data: data, Total: total, Limit: page.Limit, Offset: page.Offset}
}
