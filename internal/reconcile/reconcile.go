// Package reconcile is C9, the only mechanism that resolves "DB says HOLD,
// C2 says free" skew. It runs on two independent schedules: a frequent
// hold-expiration sweep, and an on-demand orphan-lock probe triggered after
// a lock-store restart is suspected.
package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/seatcore/internal/booking"
	"github.com/iliyamo/seatcore/internal/lockstore"
	"github.com/iliyamo/seatcore/internal/store"
)

// Loop owns the reconciliation passes.
type Loop struct {
	db       *sql.DB
	bookings *store.BookingRepo
	audit    *store.AuditRepo
	locks    *lockstore.Store
	machine  *booking.Machine
}

// New returns a Loop over the given dependencies.
func New(db *sql.DB, bookings *store.BookingRepo, audit *store.AuditRepo, locks *lockstore.Store, machine *booking.Machine) *Loop {
	return &Loop{db: db, bookings: bookings, audit: audit, locks: locks, machine: machine}
}

// ExpireHolds transitions every HOLD booking whose deadline has passed to
// EXPIRED, releasing its lock keys via the state machine's release hook.
// It returns how many bookings it expired.
func (l *Loop) ExpireHolds(ctx context.Context, batchSize int) (int, error) {
	candidates, err := l.bookings.ExpiredHoldCandidates(ctx, time.Now(), batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, b := range candidates {
		if err := l.expireOne(ctx, b.ID, "hold_expiry"); err != nil {
			continue // best-effort: a failed row is retried on the next pass
		}
		expired++
	}
	return expired, nil
}

// ReconcileOrphans probes C2 for the existence of every lock key on each
// booking in bookingIDs that is still in HOLD. If none of a booking's keys exist, C2 has lost the
// locks (e.g. after a FLUSHDB), and the booking is expired.
func (l *Loop) ReconcileOrphans(ctx context.Context, bookingIDs []uint64) (int, error) {
	reconciled := 0
	for _, id := range bookingIDs {
		b, err := l.bookings.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if b.Status != store.BookingHold {
			continue
		}

		anyHeld := false
		for _, key := range b.LockKeys {
			ok, err := l.locks.Exists(ctx, key)
			if err != nil {
				continue
			}
			if ok {
				anyHeld = true
				break
			}
		}
		if anyHeld {
			continue
		}

		if err := l.expireOne(ctx, b.ID, "orphan_reconciliation"); err != nil {
			continue
		}
		reconciled++
	}
	return reconciled, nil
}

func (l *Loop) expireOne(ctx context.Context, bookingID uint64, reason string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := l.bookings.GetForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != store.BookingHold {
		return tx.Commit() // already resolved by a concurrent winner
	}

	releaseHook := func(ctx context.Context) error {
		for _, key := range b.LockKeys {
			if _, err := l.locks.Expire(ctx, key); err != nil {
				return err
			}
		}
		return nil
	}
	if err := l.machine.Transition(ctx, tx, b, store.BookingExpired, releaseHook, store.StatusUpdateFields{}); err != nil {
		return err
	}

	var sid *string
	if b.SessionID != "" {
		sid = &b.SessionID
	}
	key := fmt.Sprintf("booking:%d:%s", bookingID, reason)
	if _, err := l.audit.RecordTx(ctx, tx, "inventory", "INVENTORY_RELEASED", key, sid, nil, nil); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
