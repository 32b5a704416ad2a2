package store

import "math"

const (
	DefaultLimit = 6
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit well inside int64 and Mongo's skip range.
	MaxPage = 1_000_000
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the page to 1..MaxPage and the limit to 1..MaxLimit.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Page) Skip() int64 {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	return int64(p.Page-1) * int64(p.Limit)
}

// Result is one page of items plus the counts the SPA paginates with.
type Result[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func newResult[T any](items []T, total int64, p Page) Result[T] {
	if items == nil {
		items = []T{}
	}
	return Result[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(p.Limit))),
	}
}
