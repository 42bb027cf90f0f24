// Package booking is C5, the booking state machine. It is the only code
// path allowed to write booking.status; every coordinator in
// internal/coordinator goes through Transition instead of touching
// store.BookingRepo.UpdateStatusTx directly.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/seatcore/internal/store"
)

// ErrDisallowedTransition is returned when (from, to) is not in the
// allowed-transitions table.
var ErrDisallowedTransition = errors.New("booking: disallowed transition")

var allowed = map[store.BookingStatus]map[store.BookingStatus]bool{
	store.BookingHold: {
		store.BookingConfirmed: true,
		store.BookingCancelled: true,
		store.BookingExpired:   true,
		store.BookingHold:      true, // no-op re-entry
	},
	store.BookingConfirmed: {
		store.BookingCancelled: true,
	},
	store.BookingCancelled: {},
	store.BookingExpired:   {},
}

// Allowed reports whether the (from, to) pair is a legal transition.
func Allowed(from, to store.BookingStatus) bool {
	next, ok := allowed[from]
	return ok && next[to]
}

// ReleaseHook runs before the status column flips away from HOLD. A
// non-nil error aborts the transition: the booking stays in HOLD.
type ReleaseHook func(ctx context.Context) error

// Machine drives booking transitions over a single store.BookingRepo.
type Machine struct {
	bookings *store.BookingRepo
}

// New returns a Machine bound to the given booking repository.
func New(bookings *store.BookingRepo) *Machine {
	return &Machine{bookings: bookings}
}

// Transition moves a booking from its current status to `to` inside tx,
// running releaseHook first whenever the move leaves HOLD. fields carries
// the status-specific columns (ticket info, cancellation info) to stamp
// atomically with the flip. The caller must have already loaded current
// under FOR UPDATE (store.BookingRepo.GetForUpdateTx) in the same tx.
func (m *Machine) Transition(ctx context.Context, tx *sql.Tx, current *store.Booking, to store.BookingStatus, releaseHook ReleaseHook, fields store.StatusUpdateFields) error {
	if !Allowed(current.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrDisallowedTransition, current.Status, to)
	}

	if to == current.Status {
		return nil // no-op re-entry (HOLD -> HOLD)
	}

	if current.Status == store.BookingHold && releaseHook != nil {
		if err := releaseHook(ctx); err != nil {
			return fmt.Errorf("booking: release hook failed, transition aborted: %w", err)
		}
	}

	return m.bookings.UpdateStatusTx(ctx, tx, current.ID, to, fields)
}

// HoldExpiryDeadline computes the absolute hold expiry timestamp for a new
// HOLD booking given the configured hold duration.
func HoldExpiryDeadline(now time.Time, holdDuration time.Duration) time.Time {
	return now.Add(holdDuration)
}
