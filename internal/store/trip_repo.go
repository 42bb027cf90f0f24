package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TripRepo provides data access to the trips table.
type TripRepo struct {
	db *sql.DB
}

// NewTripRepo returns a new TripRepo bound to the given database.
func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{db: db} }

// Create inserts a new trip for routeID.
func (r *TripRepo) Create(ctx context.Context, routeID uint64, journeyDate time.Time, departureTime string, seatQuota uint32) (uint64, error) {
	const q = `INSERT INTO trips (route_id, journey_date, departure_time, seat_quota) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, routeID, journeyDate, departureTime, seatQuota)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a trip by id.
func (r *TripRepo) GetByID(ctx context.Context, id uint64) (*Trip, error) {
	const q = `SELECT id, route_id, journey_date, departure_time, seat_quota, created_at FROM trips WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// GetForUpdate fetches a trip row under FOR UPDATE, used by hold creation
// (coordinator.CreateHold) to serialize against concurrent quota changes.
func (r *TripRepo) GetForUpdate(ctx context.Context, tx *sql.Tx, id uint64) (*Trip, error) {
	const q = `SELECT id, route_id, journey_date, departure_time, seat_quota, created_at FROM trips WHERE id = ? FOR UPDATE`
	return r.scanOne(tx.QueryRowContext(ctx, q, id))
}

// ListByRouteAndDate returns trips for a route on a given journey date,
// ordered by departure time. Nothing in this service calls it.
func (r *TripRepo) ListByRouteAndDate(ctx context.Context, routeID uint64, journeyDate time.Time) ([]Trip, error) {
	const q = `SELECT id, route_id, journey_date, departure_time, seat_quota, created_at
		FROM trips WHERE route_id = ? AND journey_date = ? ORDER BY departure_time ASC`
	rows, err := r.db.QueryContext(ctx, q, routeID, journeyDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Trip
	for rows.Next() {
		var t Trip
		if err := rows.Scan(&t.ID, &t.RouteID, &t.JourneyDate, &t.DepartureTime, &t.SeatQuota, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TripRepo) scanOne(row *sql.Row) (*Trip, error) {
	var t Trip
	if err := row.Scan(&t.ID, &t.RouteID, &t.JourneyDate, &t.DepartureTime, &t.SeatQuota, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
