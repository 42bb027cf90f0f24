package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seatcore/internal/booking"
	"github.com/iliyamo/seatcore/internal/lockstore"
	"github.com/iliyamo/seatcore/internal/store"
)

func newTestLoop(t *testing.T) (*Loop, sqlmock.Sqlmock, *miniredis.Miniredis, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locks := lockstore.New(rdb, 5*time.Second, 3)

	bookings := store.NewBookingRepo(db)
	audit := store.NewAuditRepo(db)
	machine := booking.New(bookings)

	cleanup := func() {
		mr.Close()
		db.Close()
	}
	return New(db, bookings, audit, locks, machine), mock, mr, cleanup
}

func bookingCols() []string {
	return []string{
		"id", "customer_phone", "customer_name", "session_id", "trip_id", "seat_count", "seat_numbers", "lock_keys",
		"status", "hold_expires_at", "ticket_attachment_id", "ticket_received_at",
		"cancelled_at", "cancelled_by", "cancellation_reason", "created_at",
	}
}

func holdBookingRow(id uint64, sessionID string, lockKeysJSON string, holdExpiresAt time.Time) []rowValue {
	return []rowValue{
		id, "+15551234", nil, sessionID, uint64(100), 1, "[7]", lockKeysJSON,
		"HOLD", holdExpiresAt, nil, nil, nil, nil, nil, time.Now(),
	}
}

type rowValue = interface{}

func TestExpireHoldsStampsBookingSessionIDOnAuditRow(t *testing.T) {
	loop, mock, _, cleanup := newTestLoop(t)
	defer cleanup()

	past := time.Now().Add(-time.Hour)
	candidateRows := sqlmock.NewRows(bookingCols()).AddRow(holdBookingRow(1, "sess_b2", `["lock:trip:100:seat:7"]`, past)...)
	mock.ExpectQuery("FROM bookings").WillReturnRows(candidateRows)

	mock.ExpectBegin()
	forUpdateRows := sqlmock.NewRows(bookingCols()).AddRow(holdBookingRow(1, "sess_b2", `["lock:trip:100:seat:7"]`, past)...)
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").WillReturnRows(forUpdateRows)
	mock.ExpectExec("UPDATE bookings SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs("inventory", "INVENTORY_RELEASED", "booking:1:hold_expiry", "completed", "sess_b2", nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := loop.ExpireHolds(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileOrphansExpiresBookingWithNoHeldLocks(t *testing.T) {
	loop, mock, _, cleanup := newTestLoop(t)
	defer cleanup()

	future := time.Now().Add(time.Hour)
	mock.ExpectQuery("FROM bookings WHERE id = \\?$").
		WillReturnRows(sqlmock.NewRows(bookingCols()).AddRow(holdBookingRow(2, "sess_orphan", `["lock:trip:100:seat:9"]`, future)...))

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(bookingCols()).AddRow(holdBookingRow(2, "sess_orphan", `["lock:trip:100:seat:9"]`, future)...))
	mock.ExpectExec("UPDATE bookings SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs("inventory", "INVENTORY_RELEASED", "booking:2:orphan_reconciliation", "completed", "sess_orphan", nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := loop.ReconcileOrphans(context.Background(), []uint64{2})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileOrphansSkipsBookingWhoseLockIsStillHeld(t *testing.T) {
	loop, mock, mr, cleanup := newTestLoop(t)
	defer cleanup()

	const key = "lock:trip:100:seat:3"
	require.NoError(t, mr.Set(key, "some-owner"))

	future := time.Now().Add(time.Hour)
	mock.ExpectQuery("FROM bookings WHERE id = \\?$").
		WillReturnRows(sqlmock.NewRows(bookingCols()).AddRow(holdBookingRow(3, "sess_live", `["`+key+`"]`, future)...))

	n, err := loop.ReconcileOrphans(context.Background(), []uint64{3})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
