package allocation

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seatcore/internal/lockstore"
	"github.com/iliyamo/seatcore/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock, *sql.Tx, *miniredis.Miniredis, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locks := lockstore.New(rdb, 5*time.Second, 3)

	trips := store.NewTripRepo(db)
	bookings := store.NewBookingRepo(db)
	overrides := store.NewInventoryOverrideRepo(db)

	cleanup := func() {
		mr.Close()
		db.Close()
	}
	return New(trips, bookings, overrides, locks), mock, tx, mr, cleanup
}

func TestAllocateSkipsBlockedSeatsInAscendingOrder(t *testing.T) {
	e, mock, tx, _, cleanup := newTestEngine(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"seat_number"}).AddRow(1)
	mock.ExpectQuery("SELECT seat_number FROM inventory_overrides").WillReturnRows(rows)

	res, err := e.Allocate(context.Background(), tx, 100, 5, 9, time.Now(), 2, "session-a", time.Minute)
	require.NoError(t, err)
	require.True(t, res.Acquired)
	require.Equal(t, []int{2, 3}, res.SeatNumbers, "seat 1 is blocked, so the first two free seats are 2 and 3")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocatePartialFailureReleasesEveryAcquiredLock(t *testing.T) {
	e, mock, tx, mr, cleanup := newTestEngine(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"seat_number"})
	mock.ExpectQuery("SELECT seat_number FROM inventory_overrides").WillReturnRows(rows)

	// seatQuota of 2 can never satisfy a seatCount of 3: the engine must give
	// up and release whatever it grabbed along the way.
	res, err := e.Allocate(context.Background(), tx, 100, 2, 9, time.Now(), 3, "session-a", time.Minute)
	require.NoError(t, err)
	require.False(t, res.Acquired)

	require.False(t, mr.Exists(lockstore.Key(100, 1)), "a failed allocation must not leave any lock held")
	require.False(t, mr.Exists(lockstore.Key(100, 2)))
}

func TestAllocateSameOwnerRepeatReturnsSameSeats(t *testing.T) {
	e, mock, tx, _, cleanup := newTestEngine(t)
	defer cleanup()

	mock.ExpectQuery("SELECT seat_number FROM inventory_overrides").WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
	first, err := e.Allocate(context.Background(), tx, 100, 5, 9, time.Now(), 2, "session-a", time.Minute)
	require.NoError(t, err)
	require.True(t, first.Acquired)

	mock.ExpectQuery("SELECT seat_number FROM inventory_overrides").WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
	second, err := e.Allocate(context.Background(), tx, 100, 5, 9, time.Now(), 2, "session-a", time.Minute)
	require.NoError(t, err)
	require.True(t, second.Acquired)
	require.Equal(t, first.SeatNumbers, second.SeatNumbers, "re-acquiring by the same owner is idempotent")
}

func TestAvailabilityFloorsAtZero(t *testing.T) {
	e, mock, tx, _, cleanup := newTestEngine(t)
	defer cleanup()

	now := time.Now()
	confirmedRows := sqlmock.NewRows(bookingCols()).AddRow(bookingRow(1, "[1,2]")...)
	mock.ExpectQuery("FROM bookings WHERE trip_id = \\? AND status = \\?").WillReturnRows(confirmedRows)

	holdRows := sqlmock.NewRows(bookingCols()).AddRow(bookingRow(2, "[3,4,5]")...)
	mock.ExpectQuery("FROM bookings").WillReturnRows(holdRows)

	blockedRows := sqlmock.NewRows([]string{"seat_number"}).AddRow(6)
	mock.ExpectQuery("SELECT seat_number FROM inventory_overrides").WillReturnRows(blockedRows)

	avail, err := e.Availability(context.Background(), tx, 100, 5, 9, now, now)
	require.NoError(t, err)
	require.Equal(t, 0, avail, "2 confirmed + 3 held + 1 blocked exceeds a quota of 5, so availability floors at 0")
}

func TestBlockFailsWhenSeatAlreadyConfirmed(t *testing.T) {
	e, mock, tx, _, cleanup := newTestEngine(t)
	defer cleanup()

	confirmedRows := sqlmock.NewRows(bookingCols()).AddRow(bookingRow(1, "[4]")...)
	mock.ExpectQuery("FROM bookings WHERE trip_id = \\? AND status = \\?").WillReturnRows(confirmedRows)

	err := e.Block(context.Background(), tx, 9, 100, time.Now(), []int{4}, "operator-1", nil)
	require.ErrorIs(t, err, ErrSeatAlreadyConfirmed)
}

func bookingCols() []string {
	return []string{
		"id", "customer_phone", "customer_name", "session_id", "trip_id", "seat_count", "seat_numbers", "lock_keys",
		"status", "hold_expires_at", "ticket_attachment_id", "ticket_received_at",
		"cancelled_at", "cancelled_by", "cancellation_reason", "created_at",
	}
}

func bookingRow(id uint64, seatNumbersJSON string) []driverValue {
	return []driverValue{
		id, "+15551234", "jane", "sess-1", uint64(100), 1, seatNumbersJSON, "[]",
		"CONFIRMED", nil, nil, nil, nil, nil, nil, time.Now(),
	}
}

type driverValue = interface{}
