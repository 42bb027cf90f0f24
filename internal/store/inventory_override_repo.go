package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// InventoryOverrideRepo provides data access to the inventory_overrides table.
type InventoryOverrideRepo struct {
	db *sql.DB
}

// NewInventoryOverrideRepo returns a new InventoryOverrideRepo bound to the given database.
func NewInventoryOverrideRepo(db *sql.DB) *InventoryOverrideRepo { return &InventoryOverrideRepo{db: db} }

// UpsertTx records a block/unblock decision for (routeID, tripDate, seatNumber)
// inside tx. A row already exists for this key only if it was previously
// blocked or unblocked; ON DUPLICATE KEY UPDATE keeps one row per key with the
// latest status, matching the "decision", not "event log", semantics of the
// override table.
func (r *InventoryOverrideRepo) UpsertTx(ctx context.Context, tx *sql.Tx, o InventoryOverride) (uint64, error) {
	const q = `INSERT INTO inventory_overrides
		(route_id, trip_date, seat_number, status, actor, reason)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE status = VALUES(status), actor = VALUES(actor), reason = VALUES(reason), updated_at = CURRENT_TIMESTAMP`
	res, err := tx.ExecContext(ctx, q, o.RouteID, o.TripDate, o.SeatNumber, string(o.Status), o.Actor, o.Reason)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// BlockedSeatsTx returns the seat numbers currently blocked for
// (routeID, tripDate), under FOR UPDATE so the allocation engine's read and
// the booking write it guards stay serialized against a concurrent override.
func (r *InventoryOverrideRepo) BlockedSeatsTx(ctx context.Context, tx *sql.Tx, routeID uint64, tripDate time.Time) ([]int, error) {
	const q = `SELECT seat_number FROM inventory_overrides
		WHERE route_id = ? AND trip_date = ? AND status = ? FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, routeID, tripDate, string(OverrideBlocked))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// GetTx fetches the override row for a specific seat, if any.
func (r *InventoryOverrideRepo) GetTx(ctx context.Context, tx *sql.Tx, routeID uint64, tripDate time.Time, seatNumber int) (*InventoryOverride, error) {
	const q = `SELECT id, route_id, trip_date, seat_number, status, actor, reason, created_at, updated_at
		FROM inventory_overrides WHERE route_id = ? AND trip_date = ? AND seat_number = ? FOR UPDATE`
	row := tx.QueryRowContext(ctx, q, routeID, tripDate, seatNumber)
	var o InventoryOverride
	if err := row.Scan(&o.ID, &o.RouteID, &o.TripDate, &o.SeatNumber, &o.Status, &o.Actor, &o.Reason, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}
