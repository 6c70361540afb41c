package shared

import (
	"net/http"
	"strings"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

// Listing defaults shared by every catalog endpoint.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 200

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilters represents standard list page filters
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string

	// Entity specific filters
	CategoryID string
	SupplierID string
	LowStock   bool
	IsActive   *bool
}

// Offset returns the row offset of the requested page.
func (f ListFilters) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// Normalize applies pagination defaults and bounds.
func (f ListFilters) Normalize() ListFilters {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.SortDir != SortDesc {
		f.SortDir = SortAsc
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// FiltersFromRequest reads the common list query parameters.
func FiltersFromRequest(r *http.Request) ListFilters {
	q := r.URL.Query()
	f := ListFilters{
		Page:    httpx.IntQuery(r, "page", DefaultPage),
		Limit:   httpx.IntQuery(r, "limit", DefaultLimit),
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	}
	return f.Normalize()
}
