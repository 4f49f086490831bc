package catalog

import (
	"context"
	"strings"
)

// Filter narrows a product listing. Zero values mean "no constraint".
type Filter struct {
	Category string
	Query    string
	MinPrice int64
	MaxPrice int64
}

// Match reports whether p satisfies the filter. Text comparisons are
// case-insensitive substring matches.
func (f Filter) Match(p Product) bool {
	if f.Category != "" && !containsFold(p.Category, f.Category) {
		return false
	}
	if f.Query != "" {
		if !containsFold(p.Name, f.Query) &&
			!containsFold(p.Category, f.Query) &&
			!containsFold(p.Description, f.Query) {
			return false
		}
	}
	if f.MinPrice > 0 && p.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && p.Price > f.MaxPrice {
		return false
	}
	return true
}

// Apply returns the products matching f, preserving input order.
func Apply(products []Product, f Filter) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(substr)))
}

// Service is a catalog query collaborator.
type Service interface {
	// Products lists the products matching the filter.
	Products(ctx context.Context, f Filter) ([]Product, error)
	// Product looks up a single product, returning ErrNotFound if absent.
	Product(ctx context.Context, id ID) (*Product, error)
}
