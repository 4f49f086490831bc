package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"smartshop/internal/catalog"
)

const productColumns = "id, name, slug, price, original_price, category, subcategory, rating, " +
	"reviews, in_stock, stock_count, description, features, image_url, tags"

// Catalog implements catalog.Service against the products table.
type Catalog struct {
	q Querier
}

// NewCatalog creates a catalog over q.
func NewCatalog(q Querier) *Catalog {
	return &Catalog{q: q}
}

var _ catalog.Service = (*Catalog)(nil)

// productQuery builds the listing query for f. Text filters are ILIKE
// substring matches with LIKE metacharacters escaped.
func productQuery(f catalog.Filter) (string, []any) {
	var cond []string
	var args []any
	idx := 1

	if c := strings.TrimSpace(f.Category); c != "" {
		cond = append(cond, fmt.Sprintf("(category ILIKE $%d OR subcategory ILIKE $%d)", idx, idx))
		args = append(args, likePattern(c))
		idx++
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		cond = append(cond, fmt.Sprintf("(name ILIKE $%d OR category ILIKE $%d OR description ILIKE $%d)", idx, idx, idx))
		args = append(args, likePattern(q))
		idx++
	}
	if f.MinPrice > 0 {
		cond = append(cond, fmt.Sprintf("price >= $%d", idx))
		args = append(args, f.MinPrice)
		idx++
	}
	if f.MaxPrice > 0 {
		cond = append(cond, fmt.Sprintf("price <= $%d", idx))
		args = append(args, f.MaxPrice)
	}

	sql := "SELECT " + productColumns + " FROM products"
	if len(cond) > 0 {
		sql += " WHERE " + strings.Join(cond, " AND ")
	}
	sql += " ORDER BY name"
	return sql, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// Products implements catalog.Service.
func (c *Catalog) Products(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	sql, args := productQuery(f)
	rows, err := c.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	return out, nil
}

// Product implements catalog.Service.
func (c *Catalog) Product(ctx context.Context, id catalog.ID) (*catalog.Product, error) {
	row := c.q.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", string(id))
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var (
		p                                 catalog.Product
		id                                string
		slug, subcategory, desc, imageURL *string
		reviews, stock                    *int32
	)
	err := row.Scan(&id, &p.Name, &slug, &p.Price, &p.OriginalPrice, &p.Category, &subcategory,
		&p.Rating, &reviews, &p.InStock, &stock, &desc, &p.Features, &imageURL, &p.Tags)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, err
	}
	if err != nil {
		return p, fmt.Errorf("scan product: %w", err)
	}
	p.ID = catalog.ID(id)
	p.Slug = deref(slug)
	p.Subcategory = deref(subcategory)
	p.Description = deref(desc)
	p.ImageURL = deref(imageURL)
	p.Reviews = intPtr(reviews)
	p.StockCount = intPtr(stock)
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intPtr(v *int32) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}
