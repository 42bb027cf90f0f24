package store

import (
	"context"
	"database/sql"
)

// CancellationRepo provides data access to the cancellations table.
type CancellationRepo struct {
	db *sql.DB
}

// NewCancellationRepo returns a new CancellationRepo bound to the given database.
func NewCancellationRepo(db *sql.DB) *CancellationRepo { return &CancellationRepo{db: db} }

// CreateTx records a cancellation row inside tx, called alongside
// BookingRepo.UpdateStatusTx when a booking transitions to CANCELLED.
func (r *CancellationRepo) CreateTx(ctx context.Context, tx *sql.Tx, bookingID uint64, cancelledBy string, reason *string) (uint64, error) {
	const q = `INSERT INTO cancellations (booking_id, cancelled_by, cancellation_reason) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, bookingID, cancelledBy, reason)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByBookingID fetches the cancellation row for a booking, if any.
func (r *CancellationRepo) GetByBookingID(ctx context.Context, bookingID uint64) (*Cancellation, error) {
	const q = `SELECT id, booking_id, cancelled_by, cancellation_reason, created_at FROM cancellations WHERE booking_id = ?`
	row := r.db.QueryRowContext(ctx, q, bookingID)
	var c Cancellation
	if err := row.Scan(&c.ID, &c.BookingID, &c.CancelledBy, &c.CancellationReason, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
