// Package allocation is C6, the seat allocation and override engine. It
// composes C1 (trip/booking/override repositories) and C3 (the lock store)
// to pick seats deterministically and to compute trip availability.
package allocation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/seatcore/internal/lockstore"
	"github.com/iliyamo/seatcore/internal/store"
)

// ErrSeatAlreadyConfirmed is returned when a block request targets a seat
// that already belongs to a CONFIRMED booking.
var ErrSeatAlreadyConfirmed = errors.New("allocation: seat already confirmed")

// Engine allocates and blocks seats.
type Engine struct {
	trips     *store.TripRepo
	bookings  *store.BookingRepo
	overrides *store.InventoryOverrideRepo
	locks     *lockstore.Store
}

// New returns an Engine over the given repositories and lock store.
func New(trips *store.TripRepo, bookings *store.BookingRepo, overrides *store.InventoryOverrideRepo, locks *lockstore.Store) *Engine {
	return &Engine{trips: trips, bookings: bookings, overrides: overrides, locks: locks}
}

// AllocationResult is the outcome of an allocation attempt.
type AllocationResult struct {
	Acquired    bool
	SeatNumbers []int
	LockKeys    []string
}

// Allocate tries to acquire seatCount distinct seats on trip for owner
// (typically a session id), skipping seats blocked for (routeID, tripDate).
// Seats are tried in ascending order (P6 determinism). On partial success
// every acquired lock is released before returning Acquired=false.
func (e *Engine) Allocate(ctx context.Context, tx *sql.Tx, tripID uint64, seatQuota uint32, routeID uint64, tripDate time.Time, seatCount uint32, owner string, ttl time.Duration) (AllocationResult, error) {
	blocked, err := e.overrides.BlockedSeatsTx(ctx, tx, routeID, tripDate)
	if err != nil {
		return AllocationResult{}, err
	}
	blockedSet := make(map[int]bool, len(blocked))
	for _, s := range blocked {
		blockedSet[s] = true
	}

	var seatNumbers []int
	var lockKeys []string

	for seat := 1; uint32(len(seatNumbers)) < seatCount && seat <= int(seatQuota); seat++ {
		if blockedSet[seat] {
			continue
		}
		key := lockstore.Key(tripID, seat)
		res, err := e.locks.Acquire(ctx, key, owner, ttl)
		if err != nil {
			e.releaseAll(ctx, lockKeys, owner)
			return AllocationResult{}, err
		}
		if res == lockstore.Acquired || res == lockstore.AlreadyOwned {
			seatNumbers = append(seatNumbers, seat)
			lockKeys = append(lockKeys, key)
		}
	}

	if uint32(len(seatNumbers)) < seatCount {
		e.releaseAll(ctx, lockKeys, owner)
		return AllocationResult{Acquired: false}, nil
	}

	return AllocationResult{Acquired: true, SeatNumbers: seatNumbers, LockKeys: lockKeys}, nil
}

func (e *Engine) releaseAll(ctx context.Context, lockKeys []string, owner string) {
	for _, key := range lockKeys {
		_, _ = e.locks.Release(ctx, key, owner)
	}
}

// Availability computes seat_quota - confirmed - active_hold - blocked for
// a trip, floored at 0 (P5).
func (e *Engine) Availability(ctx context.Context, tx *sql.Tx, tripID uint64, seatQuota uint32, routeID uint64, tripDate time.Time, now time.Time) (int, error) {
	confirmed, err := e.bookings.ConfirmedByTrip(ctx, tripID)
	if err != nil {
		return 0, err
	}
	holds, err := e.bookings.ActiveHoldsByTripTx(ctx, tx, tripID, now)
	if err != nil {
		return 0, err
	}
	blocked, err := e.overrides.BlockedSeatsTx(ctx, tx, routeID, tripDate)
	if err != nil {
		return 0, err
	}

	confirmedSeats := 0
	for _, b := range confirmed {
		confirmedSeats += len(b.SeatNumbers)
	}
	holdSeats := 0
	for _, b := range holds {
		holdSeats += len(b.SeatNumbers)
	}

	avail := int(seatQuota) - confirmedSeats - holdSeats - len(blocked)
	if avail < 0 {
		avail = 0
	}
	return avail, nil
}

// Block upserts blocked overrides for seatNumbers on (routeID, tripDate),
// failing with ErrSeatAlreadyConfirmed if any seat is already part of a
// CONFIRMED booking on tripID. Confirmed bookings on other trips of the
// same route+date are not checked.
func (e *Engine) Block(ctx context.Context, tx *sql.Tx, routeID uint64, tripID uint64, tripDate time.Time, seatNumbers []int, actor string, reason *string) error {
	confirmed, err := e.bookings.ConfirmedByTrip(ctx, tripID)
	if err != nil {
		return err
	}
	confirmedSet := make(map[int]bool)
	for _, b := range confirmed {
		for _, s := range b.SeatNumbers {
			confirmedSet[s] = true
		}
	}
	for _, s := range seatNumbers {
		if confirmedSet[s] {
			return ErrSeatAlreadyConfirmed
		}
	}

	for _, s := range seatNumbers {
		if _, err := e.overrides.UpsertTx(ctx, tx, store.InventoryOverride{
			RouteID: routeID, TripDate: tripDate, SeatNumber: s,
			Status: store.OverrideBlocked, Actor: actor, Reason: reason,
		}); err != nil {
			return err
		}
	}
	return e.refreshCache(ctx, tx, routeID, tripDate)
}

// Unblock upserts unblocked overrides for seatNumbers on (routeID, tripDate).
func (e *Engine) Unblock(ctx context.Context, tx *sql.Tx, routeID uint64, tripDate time.Time, seatNumbers []int, actor string, reason *string) error {
	for _, s := range seatNumbers {
		if _, err := e.overrides.UpsertTx(ctx, tx, store.InventoryOverride{
			RouteID: routeID, TripDate: tripDate, SeatNumber: s,
			Status: store.OverrideUnblocked, Actor: actor, Reason: reason,
		}); err != nil {
			return err
		}
	}
	return e.refreshCache(ctx, tx, routeID, tripDate)
}

func (e *Engine) refreshCache(ctx context.Context, tx *sql.Tx, routeID uint64, tripDate time.Time) error {
	blocked, err := e.overrides.BlockedSeatsTx(ctx, tx, routeID, tripDate)
	if err != nil {
		return err
	}
	return e.locks.SetBlockedSeatsCache(ctx, routeID, tripDate.Format("2006-01-02"), blocked)
}
