package booking

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seatcore/internal/store"
)

func newMockMachine(t *testing.T) (*Machine, sqlmock.Sqlmock, *sql.Tx, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)
	return New(store.NewBookingRepo(db)), mock, tx, func() { db.Close() }
}

func TestAllowed(t *testing.T) {
	cases := []struct {
		from, to store.BookingStatus
		want     bool
	}{
		{store.BookingHold, store.BookingConfirmed, true},
		{store.BookingHold, store.BookingCancelled, true},
		{store.BookingHold, store.BookingExpired, true},
		{store.BookingHold, store.BookingHold, true},
		{store.BookingConfirmed, store.BookingCancelled, true},
		{store.BookingConfirmed, store.BookingExpired, false},
		{store.BookingCancelled, store.BookingConfirmed, false},
		{store.BookingExpired, store.BookingHold, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Allowed(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestHoldExpiryDeadline(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := HoldExpiryDeadline(now, 10*time.Minute)
	assert.Equal(t, now.Add(10*time.Minute), got)
}

func TestTransitionDisallowedReturnsError(t *testing.T) {
	m := New(nil)
	current := &store.Booking{ID: 1, Status: store.BookingCancelled}
	err := m.Transition(context.Background(), nil, current, store.BookingConfirmed, nil, store.StatusUpdateFields{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDisallowedTransition))
}

func TestTransitionSameStatusIsNoop(t *testing.T) {
	m := New(nil) // nil bookings repo: a reached UpdateStatusTx call would nil-panic
	current := &store.Booking{ID: 1, Status: store.BookingHold}
	called := false
	hook := func(ctx context.Context) error { called = true; return nil }
	err := m.Transition(context.Background(), nil, current, store.BookingHold, hook, store.StatusUpdateFields{})
	require.NoError(t, err)
	assert.False(t, called, "release hook must not run on a no-op re-entry")
}

func TestTransitionReleaseHookFailureAbortsBeforeAnyWrite(t *testing.T) {
	m := New(nil)
	current := &store.Booking{ID: 1, Status: store.BookingHold}
	hookErr := errors.New("lock release failed")
	hook := func(ctx context.Context) error { return hookErr }

	err := m.Transition(context.Background(), nil, current, store.BookingConfirmed, hook, store.StatusUpdateFields{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, hookErr))
}

func TestTransitionFromConfirmedSkipsReleaseHookEntirely(t *testing.T) {
	m, mock, tx, cleanup := newMockMachine(t)
	defer cleanup()

	current := &store.Booking{ID: 1, Status: store.BookingConfirmed}
	called := false
	hook := func(ctx context.Context) error { called = true; return nil }

	mock.ExpectExec("UPDATE bookings SET").WillReturnResult(sqlmock.NewResult(0, 1))

	err := m.Transition(context.Background(), tx, current, store.BookingCancelled, hook, store.StatusUpdateFields{})
	require.NoError(t, err)
	assert.False(t, called, "release hook only runs when leaving HOLD")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionFromHoldRunsReleaseHookThenWrites(t *testing.T) {
	m, mock, tx, cleanup := newMockMachine(t)
	defer cleanup()

	current := &store.Booking{ID: 1, Status: store.BookingHold}
	called := false
	hook := func(ctx context.Context) error { called = true; return nil }

	mock.ExpectExec("UPDATE bookings SET").WillReturnResult(sqlmock.NewResult(0, 1))

	err := m.Transition(context.Background(), tx, current, store.BookingConfirmed, hook, store.StatusUpdateFields{})
	require.NoError(t, err)
	assert.True(t, called, "release hook must run when leaving HOLD")
	require.NoError(t, mock.ExpectationsWereMet())
}
