package store

import (
	"context"
	"database/sql"
	"errors"
)

// RouteRepo provides data access to the routes table.
type RouteRepo struct {
	db *sql.DB
}

// NewRouteRepo returns a new RouteRepo bound to the given database.
func NewRouteRepo(db *sql.DB) *RouteRepo { return &RouteRepo{db: db} }

// Create inserts a new route owned by operatorID.
func (r *RouteRepo) Create(ctx context.Context, operatorID uint64, source, destination string, priceCents uint32) (uint64, error) {
	const q = `INSERT INTO routes (operator_id, source, destination, price_cents) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, operatorID, source, destination, priceCents)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a route by id.
func (r *RouteRepo) GetByID(ctx context.Context, id uint64) (*Route, error) {
	const q = `SELECT id, operator_id, source, destination, price_cents, created_at FROM routes WHERE id = ?`
	row := r.db.QueryRowContext(ctx, q, id)
	var rt Route
	if err := row.Scan(&rt.ID, &rt.OperatorID, &rt.Source, &rt.Destination, &rt.PriceCents, &rt.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rt, nil
}

// ListByOperator returns every route owned by operatorID, newest first.
func (r *RouteRepo) ListByOperator(ctx context.Context, operatorID uint64) ([]Route, error) {
	const q = `SELECT id, operator_id, source, destination, price_cents, created_at FROM routes WHERE operator_id = ? ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q, operatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Route
	for rows.Next() {
		var rt Route
		if err := rows.Scan(&rt.ID, &rt.OperatorID, &rt.Source, &rt.Destination, &rt.PriceCents, &rt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// Search finds routes matching source/destination (case-insensitive exact
// match on the normalized columns). Nothing in this service calls it.
func (r *RouteRepo) Search(ctx context.Context, source, destination string) ([]Route, error) {
	const q = `SELECT id, operator_id, source, destination, price_cents, created_at
		FROM routes WHERE LOWER(source) = LOWER(?) AND LOWER(destination) = LOWER(?)
		ORDER BY price_cents ASC`
	rows, err := r.db.QueryContext(ctx, q, source, destination)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Route
	for rows.Next() {
		var rt Route
		if err := rows.Scan(&rt.ID, &rt.OperatorID, &rt.Source, &rt.Destination, &rt.PriceCents, &rt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}
