package store

import "time"

// BookingStatus is the canonical four-state alphabet from spec §4.3. Legacy
// strings found in historical rows are normalized to these on read; every
// write goes through the booking state machine (internal/booking) and uses
// these constants exclusively.
type BookingStatus string

const (
	BookingHold      BookingStatus = "HOLD"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingExpired   BookingStatus = "EXPIRED"
)

// NormalizeBookingStatus maps legacy aliases ("pending", "payment_pending",
// "rejected") onto the canonical alphabet. Unknown values pass through
// unchanged so a caller can still detect and log them.
func NormalizeBookingStatus(raw string) BookingStatus {
	switch raw {
	case "pending", "payment_pending", string(BookingHold):
		return BookingHold
	case "rejected", string(BookingCancelled):
		return BookingCancelled
	case string(BookingConfirmed):
		return BookingConfirmed
	case string(BookingExpired):
		return BookingExpired
	default:
		return BookingStatus(raw)
	}
}

// Operator is an identity that owns routes. Immutable after creation aside
// from the approved flag.
type Operator struct {
	ID             uint64
	PhoneNormalized string
	Name           string
	PasswordHash   string
	Approved       bool
	CreatedAt      time.Time
}

// Route is a source/destination/price owned by exactly one operator.
type Route struct {
	ID         uint64
	OperatorID uint64
	Source     string
	Destination string
	PriceCents uint32
	CreatedAt  time.Time
}

// Trip is a scheduled instance of a route.
type Trip struct {
	ID            uint64
	RouteID       uint64
	JourneyDate   time.Time
	DepartureTime string // HH:MM, stored as-is; paired with JourneyDate for uniqueness
	SeatQuota     uint32
	CreatedAt     time.Time
}

// Booking is the central entity (spec §3). SessionID is the chat thread
// that created the hold, empty for bookings created outside the chat
// intake adapter; it is what reconciliation stamps onto the
// INVENTORY_RELEASED audit row and what the operator-ticket dispatch uses
// to find the booking a takeover session is confirming.
type Booking struct {
	ID                  uint64
	CustomerPhone       string
	CustomerName        *string
	SessionID           string
	TripID              uint64
	SeatCount           uint32
	SeatNumbers         []int
	LockKeys            []string
	Status              BookingStatus
	HoldExpiresAt       *time.Time
	TicketAttachmentID  *uint64
	TicketReceivedAt    *time.Time
	CancelledAt         *time.Time
	CancelledBy         *string
	CancellationReason  *string
	CreatedAt           time.Time
}

// ActiveHold reports whether this booking is a HOLD whose deadline has not
// yet passed, per the "active hold" definition in spec §4.4.
func (b Booking) ActiveHold(now time.Time) bool {
	return b.Status == BookingHold && b.HoldExpiresAt != nil && b.HoldExpiresAt.After(now)
}

// Cancellation is 1:1 with a CANCELLED booking.
type Cancellation struct {
	ID                 uint64
	BookingID          uint64
	CancelledBy        string
	CancellationReason *string
	CreatedAt          time.Time
}

// TicketAttachment records the operator-issued ticket that confirmed a booking.
type TicketAttachment struct {
	ID         uint64
	BookingID  uint64
	OperatorID uint64
	FileRef    string
	ReceivedAt time.Time
}

// OverrideStatus is the InventoryOverride lifecycle state.
type OverrideStatus string

const (
	OverrideBlocked   OverrideStatus = "blocked"
	OverrideUnblocked OverrideStatus = "unblocked"
)

// InventoryOverride is an operator/admin decision that a seat on a specific
// route+date is unavailable (blocked) or re-available (unblocked).
type InventoryOverride struct {
	ID         uint64
	RouteID    uint64
	TripDate   time.Time
	SeatNumber int
	Status     OverrideStatus
	Actor      string
	Reason     *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AuditStatus is the idempotency ledger / audit trail status machine.
type AuditStatus string

const (
	AuditStarted   AuditStatus = "started"
	AuditCompleted AuditStatus = "completed"
	AuditFailed    AuditStatus = "failed"
)

// AuditEvent is append-only and doubles as the idempotency ledger row for
// (source, event_type, idempotency_key).
type AuditEvent struct {
	ID               uint64
	Source           string
	EventType        string
	IdempotencyKey   string
	Status           AuditStatus
	RequestHash      string
	ResponseSnapshot []byte
	ErrorSnapshot    []byte
	CreatedAt        time.Time
	CompletedAt      *time.Time
	SessionID        *string
	OperatorID       *uint64
	Payload          []byte
}

// MessageLog records an inbound chat webhook payload for support/debugging
// (SPEC_FULL §7 supplemented feature).
type MessageLog struct {
	ID                uint64
	Source            string
	ExternalMessageID string
	MessageType       string
	FromPhone         string
	BodySnapshot      []byte
	CreatedAt         time.Time
}

// OperatorTakeover records an operator claiming exclusive control of a
// customer session's automated replies (SPEC_FULL §7 supplemented feature).
type OperatorTakeover struct {
	ID         uint64
	SessionID  string
	OperatorID uint64
	StartedAt  time.Time
	ReleasedAt *time.Time
}
