// Package coordinator is C8: the orchestration layer that composes the
// persistent store (C1), the lock store (C3), the booking state machine
// (C5) and the allocation engine (C6) into the handful of operations the
// intake adapters (C7) actually invoke. Every public method runs under the
// idempotency envelope (C4), so a redelivered webhook or a retried HTTP
// call is always safe to resend with the same key.
package coordinator

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/seatcore/internal/allocation"
	"github.com/iliyamo/seatcore/internal/booking"
	"github.com/iliyamo/seatcore/internal/domainerr"
	"github.com/iliyamo/seatcore/internal/idempotency"
	"github.com/iliyamo/seatcore/internal/lockstore"
	"github.com/iliyamo/seatcore/internal/store"
)

// Coordinator wires together every component a booking operation touches.
type Coordinator struct {
	db            *sql.DB
	trips         *store.TripRepo
	routes        *store.RouteRepo
	operators     *store.OperatorRepo
	bookings      *store.BookingRepo
	cancellations *store.CancellationRepo
	tickets       *store.TicketAttachmentRepo
	audit         *store.AuditRepo
	locks         *lockstore.Store
	alloc         *allocation.Engine
	machine       *booking.Machine
	idem          *idempotency.Envelope
	holdDuration  time.Duration
}

// New wires a Coordinator from its component dependencies.
func New(
	db *sql.DB,
	trips *store.TripRepo,
	routes *store.RouteRepo,
	operators *store.OperatorRepo,
	bookings *store.BookingRepo,
	cancellations *store.CancellationRepo,
	tickets *store.TicketAttachmentRepo,
	audit *store.AuditRepo,
	locks *lockstore.Store,
	alloc *allocation.Engine,
	machine *booking.Machine,
	idem *idempotency.Envelope,
	holdDuration time.Duration,
) *Coordinator {
	return &Coordinator{
		db: db, trips: trips, routes: routes, operators: operators,
		bookings: bookings, cancellations: cancellations, tickets: tickets,
		audit: audit, locks: locks, alloc: alloc, machine: machine,
		idem: idem, holdDuration: holdDuration,
	}
}

// CreateHoldRequest is the input to hold creation.
type CreateHoldRequest struct {
	TripID        uint64
	SeatCount     uint32
	CustomerPhone string
	CustomerName  *string
	SessionID     string
}

// CreateHoldResponse is returned to the caller and cached for replay.
type CreateHoldResponse struct {
	BookingID     uint64             `json:"booking_id"`
	SeatNumbers   []int              `json:"seat_numbers"`
	Status        store.BookingStatus `json:"status"`
	HoldExpiresAt time.Time          `json:"hold_expires_at"`
}

// CreateHold validates the trip and availability, allocates seats via C6,
// and persists a HOLD booking. The invariant enforced here is that no
// booking row reaches HOLD without its locks already held in C2.
func (c *Coordinator) CreateHold(ctx context.Context, idempotencyKey string, req CreateHoldRequest) (CreateHoldResponse, bool, error) {
	out, err := c.idem.Run(ctx, "booking", "create_hold", idempotencyKey, req, &req.SessionID, nil,
		func(ctx context.Context, tx *sql.Tx) (interface{}, error) {
			trip, err := c.trips.GetForUpdate(ctx, tx, req.TripID)
			if err != nil {
				return nil, domainerr.New(domainerr.BookingNotFound, "trip not found")
			}
			route, err := c.routes.GetByID(ctx, trip.RouteID)
			if err != nil {
				return nil, domainerr.New(domainerr.BookingNotFound, "route not found")
			}

			now := time.Now()
			avail, err := c.alloc.Availability(ctx, tx, trip.ID, trip.SeatQuota, route.ID, trip.JourneyDate, now)
			if err != nil {
				return nil, domainerr.Retryable(err.Error())
			}
			if uint32(avail) < req.SeatCount {
				return nil, domainerr.New(domainerr.BookingLocked, "seats unavailable")
			}

			expiresAt := booking.HoldExpiryDeadline(now, c.holdDuration)
			result, err := c.alloc.Allocate(ctx, tx, trip.ID, trip.SeatQuota, route.ID, trip.JourneyDate, req.SeatCount, req.SessionID, c.holdDuration)
			if err != nil {
				return nil, domainerr.Retryable(err.Error())
			}
			if !result.Acquired {
				return nil, domainerr.New(domainerr.BookingLocked, "seats unavailable")
			}

			id, err := c.bookings.CreateHoldTx(ctx, tx, store.Booking{
				CustomerPhone: req.CustomerPhone,
				CustomerName:  req.CustomerName,
				SessionID:     req.SessionID,
				TripID:        trip.ID,
				SeatCount:     req.SeatCount,
				SeatNumbers:   result.SeatNumbers,
				LockKeys:      result.LockKeys,
				HoldExpiresAt: &expiresAt,
			})
			if err != nil {
				c.releaseKeys(ctx, result.LockKeys, req.SessionID)
				return nil, fmt.Errorf("persist hold: %w", err)
			}

			return CreateHoldResponse{
				BookingID: id, SeatNumbers: result.SeatNumbers,
				Status: store.BookingHold, HoldExpiresAt: expiresAt,
			}, nil
		})
	if err != nil {
		return CreateHoldResponse{}, false, err
	}
	resp, err := decodeResponse[CreateHoldResponse](out.Response)
	return resp, out.Replayed, err
}

// ConfirmWithTicketRequest is the input to operator ticket confirmation.
type ConfirmWithTicketRequest struct {
	BookingID  uint64
	OperatorID uint64
	FileRef    string
}

// ConfirmWithTicketResponse is returned to the caller and cached for replay.
type ConfirmWithTicketResponse struct {
	BookingID uint64             `json:"booking_id"`
	Status    store.BookingStatus `json:"status"`
}

// ConfirmWithTicket transitions HOLD -> CONFIRMED, releasing the booking's
// locks and recording the ticket attachment.
func (c *Coordinator) ConfirmWithTicket(ctx context.Context, idempotencyKey string, req ConfirmWithTicketRequest) (ConfirmWithTicketResponse, bool, error) {
	out, err := c.idem.Run(ctx, "operator", "confirm_ticket", idempotencyKey, req, nil, &req.OperatorID,
		func(ctx context.Context, tx *sql.Tx) (interface{}, error) {
			b, err := c.bookings.GetForUpdateTx(ctx, tx, req.BookingID)
			if err != nil {
				return nil, domainerr.New(domainerr.BookingNotFound, "booking not found")
			}
			if b.Status != store.BookingHold {
				// Idempotent success: another caller already moved this booking.
				return ConfirmWithTicketResponse{BookingID: b.ID, Status: b.Status}, nil
			}

			now := time.Now()
			ticketID, err := c.tickets.CreateTx(ctx, tx, b.ID, req.OperatorID, req.FileRef, now)
			if err != nil {
				return nil, fmt.Errorf("record ticket: %w", err)
			}

			releaseHook := c.releaseHookFor(ctx, b)
			if err := c.machine.Transition(ctx, tx, b, store.BookingConfirmed, releaseHook, store.StatusUpdateFields{
				TicketAttachmentID: &ticketID,
				TicketReceivedAt:   &now,
			}); err != nil {
				return nil, err
			}

			return ConfirmWithTicketResponse{BookingID: b.ID, Status: store.BookingConfirmed}, nil
		})
	if err != nil {
		return ConfirmWithTicketResponse{}, false, err
	}
	resp, err := decodeResponse[ConfirmWithTicketResponse](out.Response)
	return resp, out.Replayed, err
}

// PaymentApplyRequest is the input to a payment-gateway webhook.
type PaymentApplyRequest struct {
	GatewayEventID string
	BookingID      uint64
	Status         string // SUCCESS|SUCCEEDED|PAID|FAILED|FAILURE|CANCELLED
}

// PaymentApplyResponse is returned to the caller and cached for replay.
type PaymentApplyResponse struct {
	BookingID uint64             `json:"booking_id"`
	Status    store.BookingStatus `json:"status"`
}

// PaymentApply maps an external payment status onto {CONFIRMED, EXPIRED}
// and transitions the booking accordingly.
func (c *Coordinator) PaymentApply(ctx context.Context, req PaymentApplyRequest) (PaymentApplyResponse, bool, error) {
	out, err := c.idem.Run(ctx, "payment", "payment_webhook", req.GatewayEventID, req, nil, nil,
		func(ctx context.Context, tx *sql.Tx) (interface{}, error) {
			b, err := c.bookings.GetForUpdateTx(ctx, tx, req.BookingID)
			if err != nil {
				return nil, domainerr.New(domainerr.BookingNotFound, "booking not found")
			}
			if b.Status != store.BookingHold {
				return PaymentApplyResponse{BookingID: b.ID, Status: b.Status}, nil
			}

			target, eventType := mapPaymentStatus(req.Status)
			releaseHook := c.releaseHookFor(ctx, b)
			if err := c.machine.Transition(ctx, tx, b, target, releaseHook, store.StatusUpdateFields{}); err != nil {
				return nil, err
			}

			payload, _ := jsonMarshal(req)
			if _, err := c.audit.RecordTx(ctx, tx, "payment", eventType, req.GatewayEventID, nil, nil, payload); err != nil {
				return nil, err
			}

			return PaymentApplyResponse{BookingID: b.ID, Status: target}, nil
		})
	if err != nil {
		return PaymentApplyResponse{}, false, err
	}
	resp, err := decodeResponse[PaymentApplyResponse](out.Response)
	return resp, out.Replayed, err
}

// CancelRequest is the input to a booking cancellation.
type CancelRequest struct {
	BookingID          uint64
	Actor              string // customer|operator|admin
	CustomerPhone      string
	OperatorID         uint64
	CancellationReason *string
}

// CancelResponse is returned to the caller and cached for replay.
type CancelResponse struct {
	BookingID   uint64             `json:"booking_id"`
	Status      store.BookingStatus `json:"status"`
	Idempotent  bool               `json:"idempotent"`
}

// Cancel enforces ownership, acquires the per-booking cancellation lock,
// and transitions CONFIRMED -> CANCELLED.
func (c *Coordinator) Cancel(ctx context.Context, idempotencyKey string, req CancelRequest) (CancelResponse, bool, error) {
	lockOwner := idempotencyKey
	lockKey := lockstore.BookingCancelKey(req.BookingID)
	res, err := c.locks.Acquire(ctx, lockKey, lockOwner, 20*time.Second)
	if err != nil {
		return CancelResponse{}, false, domainerr.Retryable(err.Error())
	}
	if res == lockstore.LockedByOther {
		return CancelResponse{}, false, domainerr.New(domainerr.BookingLocked, "cancellation already in progress")
	}
	defer func() { _, _ = c.locks.Release(ctx, lockKey, lockOwner) }()

	out, err := c.idem.Run(ctx, "booking", "cancel", idempotencyKey, req, nil, &req.OperatorID,
		func(ctx context.Context, tx *sql.Tx) (interface{}, error) {
			b, err := c.bookings.GetForUpdateTx(ctx, tx, req.BookingID)
			if err != nil {
				return nil, domainerr.New(domainerr.BookingNotFound, "booking not found")
			}

			if err := c.checkOwnership(ctx, req, b); err != nil {
				return nil, err
			}

			if b.Status == store.BookingCancelled {
				return CancelResponse{BookingID: b.ID, Status: b.Status, Idempotent: true}, nil
			}
			if b.Status != store.BookingConfirmed {
				return nil, domainerr.New(domainerr.BookingNotConfirmed, "booking is not confirmed")
			}

			releaseHook := c.releaseHookFor(ctx, b) // no-op: confirmed bookings hold no locks
			cancelledAt := time.Now()
			if err := c.machine.Transition(ctx, tx, b, store.BookingCancelled, releaseHook, store.StatusUpdateFields{
				CancelledAt:        &cancelledAt,
				CancelledBy:        &req.Actor,
				CancellationReason: req.CancellationReason,
			}); err != nil {
				return nil, err
			}

			if _, err := c.cancellations.CreateTx(ctx, tx, b.ID, req.Actor, req.CancellationReason); err != nil {
				return nil, err
			}

			payload, _ := jsonMarshal(req)
			if _, err := c.audit.RecordTx(ctx, tx, "booking", "BOOKING_CANCELLED", idempotencyKey, nil, &req.OperatorID, payload); err != nil {
				return nil, err
			}
			if _, err := c.audit.RecordTx(ctx, tx, "booking", "REFUND_REQUESTED", idempotencyKey, nil, &req.OperatorID, payload); err != nil {
				return nil, err
			}

			return CancelResponse{BookingID: b.ID, Status: store.BookingCancelled}, nil
		})
	if err != nil {
		return CancelResponse{}, false, err
	}
	resp, err := decodeResponse[CancelResponse](out.Response)
	return resp, out.Replayed, err
}

func (c *Coordinator) checkOwnership(ctx context.Context, req CancelRequest, b *store.Booking) error {
	switch req.Actor {
	case "admin":
		return nil
	case "customer":
		if req.CustomerPhone == "" || req.CustomerPhone != b.CustomerPhone {
			return domainerr.New(domainerr.BookingOwnershipInvalid, "phone does not match booking")
		}
		return nil
	case "operator":
		trip, err := c.trips.GetByID(ctx, b.TripID)
		if err != nil {
			return domainerr.New(domainerr.BookingNotFound, "trip not found")
		}
		owns, err := c.operators.OwnsRoute(ctx, req.OperatorID, trip.RouteID)
		if err != nil {
			return domainerr.Retryable(err.Error())
		}
		if !owns {
			return domainerr.New(domainerr.BookingOwnershipInvalid, "operator does not own route")
		}
		return nil
	default:
		return domainerr.New(domainerr.BookingOwnershipInvalid, "unknown actor")
	}
}

// releaseHookFor returns a release hook that force-expires every lock key
// recorded on the booking through lockstore.Expire, without an owner
// check. It is a correctness no-op for bookings whose lock keys have already been
// released (e.g. a CONFIRMED booking being cancelled).
func (c *Coordinator) releaseHookFor(ctx context.Context, b *store.Booking) booking.ReleaseHook {
	return func(ctx context.Context) error {
		for _, key := range b.LockKeys {
			if _, err := c.locks.Expire(ctx, key); err != nil {
				return err
			}
		}
		return nil
	}
}

func (c *Coordinator) releaseKeys(ctx context.Context, keys []string, owner string) {
	for _, key := range keys {
		_, _ = c.locks.Release(ctx, key, owner)
	}
}

func mapPaymentStatus(status string) (store.BookingStatus, string) {
	switch status {
	case "SUCCESS", "SUCCEEDED", "PAID":
		return store.BookingConfirmed, "PAYMENT_SUCCEEDED"
	default:
		return store.BookingExpired, "INVENTORY_RELEASED"
	}
}
