package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("motorbike not found")

// Repo is the read-only catalog lookup. Stock is only ever written by the
// order placement path; catalog reads are for display and may be stale by
// the time an order is placed.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) GetMotorbike(ctx context.Context, id int64) (Motorbike, error) {
	var m Motorbike
	err := r.DB.QueryRow(ctx, `
		SELECT id, brand, model, year, price, stock, image_url, description, created_at, updated_at
		FROM motorbikes WHERE id = $1`, id).
		Scan(&m.ID, &m.Brand, &m.Model, &m.Year, &m.Price, &m.Stock, &m.ImageURL, &m.Description, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return m, ErrNotFound
		}
		return m, fmt.Errorf("query motorbike: %w", err)
	}
	return m, nil
}

func (r *Repo) ListMotorbikes(ctx context.Context) ([]Motorbike, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, brand, model, year, price, stock, image_url, description, created_at, updated_at
		FROM motorbikes ORDER BY brand, model`)
	if err != nil {
		return nil, fmt.Errorf("query motorbikes: %w", err)
	}
	defer rows.Close()

	var out []Motorbike
	for rows.Next() {
		var m Motorbike
		if err := rows.Scan(&m.ID, &m.Brand, &m.Model, &m.Year, &m.Price, &m.Stock, &m.ImageURL, &m.Description, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan motorbike: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
