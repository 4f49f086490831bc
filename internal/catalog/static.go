package catalog

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

//go:embed data/products.json
var sampleFS embed.FS

// Static is a read-only catalog held in memory.
type Static struct {
	products []Product
	index    map[ID]int
}

// NewStatic builds a catalog from an in-memory list. Duplicate IDs and
// invalid products are rejected.
func NewStatic(products []Product) (*Static, error) {
	s := &Static{
		products: make([]Product, 0, len(products)),
		index:    make(map[ID]int, len(products)),
	}
	for i := range products {
		p := products[i]
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		if _, dup := s.index[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		s.index[p.ID] = len(s.products)
		s.products = append(s.products, p)
	}
	return s, nil
}

// Decode reads a JSON array of products.
func Decode(r io.Reader) (*Static, error) {
	var products []Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewStatic(products)
}

// LoadFile reads a JSON catalog from disk.
func LoadFile(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Sample returns the catalog bundled with the binary.
func Sample() (*Static, error) {
	f, err := sampleFS.Open("data/products.json")
	if err != nil {
		return nil, fmt.Errorf("open sample catalog: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Products implements Service.
func (s *Static) Products(ctx context.Context, f Filter) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Apply(s.products, f), nil
}

// Product implements Service.
func (s *Static) Product(ctx context.Context, id ID) (*Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p := s.products[i]
	return &p, nil
}

// Len returns the number of products.
func (s *Static) Len() int {
	return len(s.products)
}
