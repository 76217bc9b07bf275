package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetOrder assembles a persisted order with its lines, each enriched with
// the motorbike's display attributes. Prices come from the frozen
// price_at_time, never from the live catalog.
func (r *Repo) GetOrder(ctx context.Context, orderID string) (OrderDetail, error) {
	var d OrderDetail

	var status string
	err := r.DB.QueryRow(ctx, `
		SELECT id, total_amount, status, created_at FROM orders WHERE id = $1`, orderID).
		Scan(&d.ID, &d.TotalAmount, &status, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return d, ErrOrderNotFound
	}
	if err != nil {
		return d, &StorageError{Err: fmt.Errorf("query order: %w", err)}
	}
	d.Status, err = ToStatus(status)
	if err != nil {
		return d, fmt.Errorf("order %s: %w", orderID, err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT oi.motorbike_id, m.brand, m.model, m.image_url, oi.quantity, oi.price_at_time
		FROM order_items oi
		JOIN motorbikes m ON m.id = oi.motorbike_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	if err != nil {
		return d, &StorageError{Err: fmt.Errorf("query order items: %w", err)}
	}
	defer rows.Close()

	for rows.Next() {
		var l LineDetail
		if err := rows.Scan(&l.MotorbikeID, &l.Brand, &l.Model, &l.ImageURL, &l.Quantity, &l.PriceAtTime); err != nil {
			return d, &StorageError{Err: fmt.Errorf("scan order item: %w", err)}
		}
		d.Lines = append(d.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return d, &StorageError{Err: fmt.Errorf("read order items: %w", err)}
	}
	return d, nil
}

// ListOrders returns all orders, newest first, with aggregate item counts.
func (r *Repo) ListOrders(ctx context.Context) ([]OrderSummary, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT o.id, o.total_amount, o.status, o.created_at,
		       COUNT(oi.id), COALESCE(SUM(oi.quantity), 0)
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		GROUP BY o.id
		ORDER BY o.created_at DESC`)
	if err != nil {
		return nil, &StorageError{Err: fmt.Errorf("query orders: %w", err)}
	}
	defer rows.Close()

	var out []OrderSummary
	for rows.Next() {
		var (
			s      OrderSummary
			status string
		)
		if err := rows.Scan(&s.ID, &s.TotalAmount, &status, &s.CreatedAt, &s.TotalItems, &s.TotalQuantity); err != nil {
			return nil, &StorageError{Err: fmt.Errorf("scan order: %w", err)}
		}
		if s.Status, err = ToStatus(status); err != nil {
			return nil, fmt.Errorf("order %s: %w", s.ID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
