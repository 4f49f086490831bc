package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortOrder is a listing order.
type SortOrder string

// Listing orders. SortNone keeps the source order.
const (
	SortNone      SortOrder = ""
	SortPriceLow  SortOrder = "price-low"
	SortPriceHigh SortOrder = "price-high"
	SortRating    SortOrder = "rating"
	SortName      SortOrder = "name"
)

// ParseSortOrder validates a sort order name.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortNone, SortPriceLow, SortPriceHigh, SortRating, SortName:
		return o, nil
	default:
		return SortNone, fmt.Errorf("unknown sort order %q", s)
	}
}

// Sort returns a sorted copy of products. Ties keep their input order.
func Sort(products []Product, order SortOrder) []Product {
	out := slices.Clone(products)
	var less func(a, b Product) int
	switch order {
	case SortPriceLow:
		less = func(a, b Product) int { return cmp.Compare(a.Price, b.Price) }
	case SortPriceHigh:
		less = func(a, b Product) int { return cmp.Compare(b.Price, a.Price) }
	case SortRating:
		less = func(a, b Product) int { return cmp.Compare(b.Rating, a.Rating) }
	case SortName:
		less = func(a, b Product) int { return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) }
	default:
		return out
	}
	slices.SortStableFunc(out, less)
	return out
}
