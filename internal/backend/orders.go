package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smartshop/internal/checkout"
	"smartshop/internal/session"
)

var orderColumns = []string{
	"order_id", "user_id", "product_id", "product_name", "product_image", "price", "quantity",
	"total_amount", "payment_type", "payment_status", "order_status", "full_name", "mobile_number",
	"email", "address", "city", "pincode", "notes", "order_date",
}

// Orders submits placed orders to the orders table.
type Orders struct {
	q Querier
}

// NewOrders creates an order sink over q.
func NewOrders(q Querier) *Orders {
	return &Orders{q: q}
}

// orderInsert builds one statement that inserts a row per line item and
// decrements the stock of every ordered product, floored at zero.
func orderInsert(userID string, o session.Order) (string, []any) {
	placeholders := make([]string, 0, len(o.Items))
	args := make([]any, 0, len(o.Items)*len(orderColumns))
	argi := 1

	for _, line := range o.Items {
		var user any
		if userID != "" {
			user = userID
		}
		var image any
		if line.Product.ImageURL != "" {
			image = line.Product.ImageURL
		}
		values := []any{
			o.ID, user, string(line.Product.ID), line.Product.Name, image,
			line.Product.Price, line.Quantity, line.Subtotal(),
			string(o.CustomerInfo.PaymentMode), checkout.PaymentStatus(o.CustomerInfo.PaymentMode),
			string(o.Status), o.CustomerInfo.Name, o.CustomerInfo.Mobile, o.CustomerInfo.Email,
			o.CustomerInfo.Address, o.CustomerInfo.City, o.CustomerInfo.Pincode, "", o.OrderDate,
		}
		ph := make([]string, len(values))
		for i := range values {
			ph[i] = fmt.Sprintf("$%d", argi)
			argi++
		}
		args = append(args, values...)
		placeholders = append(placeholders, "("+strings.Join(ph, ",")+")")
	}

	sql := "WITH inserted AS (INSERT INTO orders (" + strings.Join(orderColumns, ",") + ") VALUES " +
		strings.Join(placeholders, ",") + " RETURNING product_id, quantity) " +
		"UPDATE products p SET stock_count = GREATEST(COALESCE(p.stock_count, 0) - i.quantity, 0), " +
		"in_stock = COALESCE(p.stock_count, 0) - i.quantity > 0 " +
		"FROM (SELECT product_id, SUM(quantity)::int AS quantity FROM inserted GROUP BY product_id) i " +
		"WHERE p.id = i.product_id"
	return sql, args
}

// Submit records the order for userID. An empty userID stores a guest order.
func (s *Orders) Submit(ctx context.Context, userID string, o session.Order) error {
	if len(o.Items) == 0 {
		return errors.New("submit order: no line items")
	}
	sql, args := orderInsert(userID, o)
	if _, err := s.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("submit order %s: %w", o.ID, err)
	}
	return nil
}

// OrderSummary is one row of a user's order history.
type OrderSummary struct {
	OrderID     string
	ProductName string
	Quantity    int
	Total       int64
	Status      string
	OrderDate   string
}

// History lists a user's order rows, newest first.
func (s *Orders) History(ctx context.Context, userID string) ([]OrderSummary, error) {
	rows, err := s.q.Query(ctx,
		"SELECT order_id, product_name, quantity, total_amount, order_status, "+
			"to_char(order_date AT TIME ZONE 'UTC', 'YYYY-MM-DD\"T\"HH24:MI:SS\"Z\"') "+
			"FROM orders WHERE user_id = $1 ORDER BY order_date DESC, id",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []OrderSummary
	for rows.Next() {
		var o OrderSummary
		var qty int32
		if err := rows.Scan(&o.OrderID, &o.ProductName, &qty, &o.Total, &o.Status, &o.OrderDate); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Quantity = int(qty)
		out = append(out, o)
	}
	return out, rows.Err()
}
