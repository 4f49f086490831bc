// Package catalog defines the product model shared by the session store and
// the catalog collaborators, plus the client-side filtering and the static
// JSON catalog.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a product ID is not in the catalog.
var ErrNotFound = errors.New("catalog: product not found")

// ID is the canonical product identifier. Catalog sources disagree on whether
// IDs are numbers or strings, so every ID is normalized to its string form.
type ID string

// UnmarshalJSON accepts both JSON strings and JSON numbers.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode product id: %w", err)
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode product id: %w", err)
	}
	*id = numericID(n)
	return nil
}

// numericID renders whole numbers as plain integers so 12, 12.0 and 1.2e1
// all become "12". Fractional and out-of-range values keep their literal text.
func numericID(n json.Number) ID {
	if i, err := n.Int64(); err == nil {
		return IDFromInt(i)
	}
	if f, err := n.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return IDFromInt(int64(f))
	}
	return ID(n.String())
}

// IDFromInt converts a numeric identifier to its canonical form.
func IDFromInt(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

// String returns the ID as a plain string.
func (id ID) String() string {
	return string(id)
}

// Product is an immutable catalog record. Prices are whole currency units.
type Product struct {
	ID            ID                `json:"id"`
	Name          string            `json:"name"`
	Slug          string            `json:"slug,omitempty"`
	Price         int64             `json:"price"`
	OriginalPrice *int64            `json:"originalPrice,omitempty"`
	Category      string            `json:"category"`
	Subcategory   string            `json:"subcategory,omitempty"`
	Rating        float64           `json:"rating"`
	Reviews       *int              `json:"reviews,omitempty"`
	InStock       bool              `json:"inStock"`
	StockCount    *int              `json:"stockCount,omitempty"`
	Description   string            `json:"description,omitempty"`
	Features      []string          `json:"features,omitempty"`
	ImageURL      string            `json:"imageUrl,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	Specs         map[string]string `json:"specifications,omitempty"`
}

// Validate reports whether the product can be referenced by the store.
func (p *Product) Validate() error {
	if p == nil {
		return errors.New("product is nil")
	}
	if p.ID == "" {
		return errors.New("product id is empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product %s: name is empty", p.ID)
	}
	if p.Price < 0 {
		return fmt.Errorf("product %s: negative price %d", p.ID, p.Price)
	}
	if p.Rating < 0 || p.Rating > 5 {
		return fmt.Errorf("product %s: rating %.1f outside [0,5]", p.ID, p.Rating)
	}
	return nil
}

// Discount returns the whole-number percentage saved against OriginalPrice.
func (p *Product) Discount() int {
	if p.OriginalPrice == nil || *p.OriginalPrice <= 0 || *p.OriginalPrice <= p.Price {
		return 0
	}
	return int((*p.OriginalPrice - p.Price) * 100 / *p.OriginalPrice)
}
