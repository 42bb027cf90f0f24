package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// BookingRepo provides data access to the bookings table.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateHoldTx inserts a new HOLD booking inside tx, called by the coordinator
// once the allocation engine has picked seat numbers and the lock store has
// acquired every lock key.
func (r *BookingRepo) CreateHoldTx(ctx context.Context, tx *sql.Tx, b Booking) (uint64, error) {
	seatNumbersJSON, err := json.Marshal(b.SeatNumbers)
	if err != nil {
		return 0, err
	}
	lockKeysJSON, err := json.Marshal(b.LockKeys)
	if err != nil {
		return 0, err
	}

	const q = `INSERT INTO bookings
		(customer_phone, customer_name, session_id, trip_id, seat_count, seat_numbers, lock_keys, status, hold_expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		b.CustomerPhone, b.CustomerName, b.SessionID, b.TripID, b.SeatCount,
		seatNumbersJSON, lockKeysJSON, string(BookingHold), b.HoldExpiresAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a booking by id.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*Booking, error) {
	const q = bookingSelectCols + ` FROM bookings WHERE id = ?`
	return scanBooking(r.db.QueryRowContext(ctx, q, id))
}

// GetForUpdateTx fetches a booking row under FOR UPDATE inside tx, the entry
// point for every state transition so concurrent confirm/cancel/expire
// attempts serialize on the row instead of racing in application code.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*Booking, error) {
	const q = bookingSelectCols + ` FROM bookings WHERE id = ? FOR UPDATE`
	return scanBooking(tx.QueryRowContext(ctx, q, id))
}

// ActiveHoldsByTripTx returns every HOLD booking for tripID whose deadline is
// still in the future, used by the allocation engine to compute availability.
func (r *BookingRepo) ActiveHoldsByTripTx(ctx context.Context, tx *sql.Tx, tripID uint64, now time.Time) ([]Booking, error) {
	const q = bookingSelectCols + ` FROM bookings
		WHERE trip_id = ? AND status = ? AND hold_expires_at > ? FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, tripID, string(BookingHold), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ConfirmedByTrip returns every CONFIRMED booking for tripID.
func (r *BookingRepo) ConfirmedByTrip(ctx context.Context, tripID uint64) ([]Booking, error) {
	const q = bookingSelectCols + ` FROM bookings WHERE trip_id = ? AND status = ?`
	rows, err := r.db.QueryContext(ctx, q, tripID, string(BookingConfirmed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ExpiredHoldCandidates returns HOLD bookings whose deadline has already
// passed, the feed for the reconciliation loop's expiry pass.
func (r *BookingRepo) ExpiredHoldCandidates(ctx context.Context, now time.Time, limit int) ([]Booking, error) {
	const q = bookingSelectCols + ` FROM bookings
		WHERE status = ? AND hold_expires_at <= ? ORDER BY hold_expires_at ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, string(BookingHold), now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ActiveHoldBySessionID returns the most recent HOLD booking created on a
// chat session, the lookup the operator-ticket dispatch uses to find which
// booking an image/document message is confirming.
func (r *BookingRepo) ActiveHoldBySessionID(ctx context.Context, sessionID string) (*Booking, error) {
	const q = bookingSelectCols + ` FROM bookings
		WHERE session_id = ? AND status = ? ORDER BY created_at DESC LIMIT 1`
	return scanBooking(r.db.QueryRowContext(ctx, q, sessionID, string(BookingHold)))
}

// UpdateStatusTx flips a booking's status inside tx and stamps the
// status-specific fields. Callers (internal/booking) are responsible for
// validating the transition before calling this; it performs no transition
// checks of its own. hold_expires_at is always nulled when leaving HOLD,
// per the "a terminal booking carries no hold deadline" invariant.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status BookingStatus, fields StatusUpdateFields) error {
	const q = `UPDATE bookings SET
		status = ?,
		hold_expires_at = CASE WHEN ? THEN NULL ELSE hold_expires_at END,
		ticket_attachment_id = COALESCE(?, ticket_attachment_id),
		ticket_received_at = COALESCE(?, ticket_received_at),
		cancelled_at = COALESCE(?, cancelled_at),
		cancelled_by = COALESCE(?, cancelled_by),
		cancellation_reason = COALESCE(?, cancellation_reason)
		WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, string(status), status != BookingHold,
		fields.TicketAttachmentID, fields.TicketReceivedAt,
		fields.CancelledAt, fields.CancelledBy, fields.CancellationReason, id)
	return err
}

// StatusUpdateFields carries the optional columns a status transition may
// stamp alongside the new status. Nil fields leave the existing value alone.
type StatusUpdateFields struct {
	TicketAttachmentID  *uint64
	TicketReceivedAt    *time.Time
	CancelledAt         *time.Time
	CancelledBy         *string
	CancellationReason  *string
}

const bookingSelectCols = `SELECT
	id, customer_phone, customer_name, session_id, trip_id, seat_count, seat_numbers, lock_keys,
	status, hold_expires_at, ticket_attachment_id, ticket_received_at,
	cancelled_at, cancelled_by, cancellation_reason, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*Booking, error) {
	var b Booking
	var seatNumbersJSON, lockKeysJSON []byte
	var rawStatus string

	err := row.Scan(
		&b.ID, &b.CustomerPhone, &b.CustomerName, &b.SessionID, &b.TripID, &b.SeatCount,
		&seatNumbersJSON, &lockKeysJSON, &rawStatus, &b.HoldExpiresAt,
		&b.TicketAttachmentID, &b.TicketReceivedAt,
		&b.CancelledAt, &b.CancelledBy, &b.CancellationReason, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	b.Status = NormalizeBookingStatus(rawStatus)
	if err := json.Unmarshal(seatNumbersJSON, &b.SeatNumbers); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lockKeysJSON, &b.LockKeys); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]Booking, error) {
	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
