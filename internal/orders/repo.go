package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

// PlaceOrder executes the placement as one transaction: conditionally
// decrement stock per line, snapshot the price observed by the same
// statement, compute the authoritative total, insert the order and its
// lines, commit. On any failure nothing is committed.
//
// clientTotal is a sanity hint only. A mismatch never blocks placement, it
// is reported via PlacedOrder.TotalMismatch.
func (r *Repo) PlaceOrder(ctx context.Context, lines []CartLine, clientTotal *decimal.Decimal) (PlacedOrder, error) {
	var placed PlacedOrder

	merged, err := normalizeLines(lines)
	if err != nil {
		return placed, err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return placed, &StorageError{Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	total := decimal.Zero
	orderLines := make([]OrderLine, 0, len(merged))
	for _, l := range merged {
		// Sufficiency check and decrement in a single statement; the guard
		// makes overselling impossible regardless of concurrent placements.
		// RETURNING price gives the snapshot as of this same transaction.
		var price decimal.Decimal
		err := tx.QueryRow(ctx, `
			UPDATE motorbikes SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND stock >= $2
			RETURNING price`, l.MotorbikeID, l.Quantity).Scan(&price)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return placed, classifyDecrementFailure(ctx, tx, l)
			}
			return placed, &StorageError{Err: fmt.Errorf("decrement stock: %w", err)}
		}

		orderLines = append(orderLines, OrderLine{
			MotorbikeID: l.MotorbikeID,
			Quantity:    l.Quantity,
			PriceAtTime: price,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	orderID := uuid.NewString()
	var createdAt time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (id, total_amount, status)
		VALUES ($1, $2, $3)
		RETURNING created_at`, orderID, total, StatusPending).Scan(&createdAt)
	if err != nil {
		return placed, &StorageError{Err: fmt.Errorf("insert order: %w", err)}
	}

	for i := range orderLines {
		orderLines[i].OrderID = orderID
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, motorbike_id, quantity, price_at_time)
			VALUES ($1, $2, $3, $4)`,
			orderID, orderLines[i].MotorbikeID, orderLines[i].Quantity, orderLines[i].PriceAtTime)
		if err != nil {
			return placed, &StorageError{Err: fmt.Errorf("insert order item: %w", err)}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		// The commit request may or may not have been applied.
		return placed, &StorageError{Ambiguous: true, Err: fmt.Errorf("tx.Commit: %w", err)}
	}

	placed = PlacedOrder{
		OrderID:     orderID,
		TotalAmount: total,
		Lines:       orderLines,
		CreatedAt:   createdAt,
	}
	if clientTotal != nil && !clientTotal.Equal(total) {
		placed.TotalMismatch = true
	}
	return placed, nil
}

// CancelOrder transitions a pending order to cancelled and restores the
// stock its lines consumed, in one transaction. Returns the restocked
// lines.
func (r *Repo) CancelOrder(ctx context.Context, orderID string) ([]CartLine, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, &StorageError{Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, &StorageError{Err: fmt.Errorf("lock order: %w", err)}
	}
	if Status(current) != StatusPending {
		return nil, IllegalTransitionError{OrderID: orderID, From: Status(current), To: StatusCancelled}
	}

	// Same lock order as placement (ascending motorbike id).
	rows, err := tx.Query(ctx, `
		SELECT motorbike_id, quantity FROM order_items
		WHERE order_id = $1 ORDER BY motorbike_id`, orderID)
	if err != nil {
		return nil, &StorageError{Err: fmt.Errorf("query order items: %w", err)}
	}
	var restock []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.MotorbikeID, &l.Quantity); err != nil {
			rows.Close()
			return nil, &StorageError{Err: fmt.Errorf("scan order item: %w", err)}
		}
		restock = append(restock, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Err: fmt.Errorf("read order items: %w", err)}
	}

	for _, l := range restock {
		if _, err := tx.Exec(ctx, `
			UPDATE motorbikes SET stock = stock + $2, updated_at = now()
			WHERE id = $1`, l.MotorbikeID, l.Quantity); err != nil {
			return nil, &StorageError{Err: fmt.Errorf("restore stock: %w", err)}
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, orderID, StatusCancelled); err != nil {
		return nil, &StorageError{Err: fmt.Errorf("update order status: %w", err)}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &StorageError{Ambiguous: true, Err: fmt.Errorf("tx.Commit: %w", err)}
	}
	return restock, nil
}

// CompleteOrder marks a pending order completed. Stock is untouched, it was
// consumed at placement.
func (r *Repo) CompleteOrder(ctx context.Context, orderID string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status = $2 WHERE id = $1 AND status = $3`,
		orderID, StatusCompleted, StatusPending)
	if err != nil {
		return &StorageError{Err: fmt.Errorf("update order status: %w", err)}
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var current string
	err = r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return &StorageError{Err: fmt.Errorf("query order status: %w", err)}
	}
	return IllegalTransitionError{OrderID: orderID, From: Status(current), To: StatusCompleted}
}

// classifyDecrementFailure runs inside the still-open transaction: a guarded
// UPDATE touching zero rows means either the motorbike does not exist or its
// stock is short.
func classifyDecrementFailure(ctx context.Context, tx pgx.Tx, l CartLine) error {
	var available int
	err := tx.QueryRow(ctx, `SELECT stock FROM motorbikes WHERE id = $1`, l.MotorbikeID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return ItemNotFoundError{MotorbikeID: l.MotorbikeID}
	}
	if err != nil {
		return &StorageError{Err: fmt.Errorf("query stock: %w", err)}
	}
	return InsufficientStockError{MotorbikeID: l.MotorbikeID, Requested: l.Quantity, Available: available}
}

// normalizeLines validates quantities, merges duplicate motorbike ids and
// sorts ascending so every placement locks rows in the same global order.
func normalizeLines(lines []CartLine) ([]CartLine, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	byID := make(map[int64]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, InvalidQuantityError{MotorbikeID: l.MotorbikeID, Quantity: l.Quantity}
		}
		byID[l.MotorbikeID] += l.Quantity
	}

	merged := lo.MapToSlice(byID, func(id int64, qty int) CartLine {
		return CartLine{MotorbikeID: id, Quantity: qty}
	})
	sort.Slice(merged, func(i, j int) bool { return merged[i].MotorbikeID < merged[j].MotorbikeID })
	return merged, nil
}
