// Package domainerr defines the domain error codes referenced throughout
// §7 of the booking core's error handling design, plus the two
// orthogonal retryability markers every adapter uses to pick an HTTP
// status without inspecting error strings.
package domainerr

import "errors"

// Code is a stable, externally-visible error identifier.
type Code string

const (
	BookingNotFound        Code = "BOOKING_NOT_FOUND"
	BookingNotConfirmed    Code = "BOOKING_NOT_CONFIRMED"
	BookingOwnershipInvalid Code = "BOOKING_OWNERSHIP_INVALID"
	BookingLocked          Code = "BOOKING_LOCKED"
	SeatAlreadyConfirmed   Code = "SEAT_ALREADY_CONFIRMED"
	DisallowedTransition   Code = "DISALLOWED_TRANSITION"
	OverRefund             Code = "OVER_REFUND"
	TakeoverAlreadyActive  Code = "TAKEOVER_ALREADY_ACTIVE"
	RetryLater             Code = "RETRY_LATER"
)

// Error is a domain-level failure carrying a stable code and whether a
// caller retrying the same idempotency key could plausibly succeed.
type Error struct {
	Code      Code
	Message   string
	Retryable bool
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

// New returns a non-retryable domain error with the given code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Retryable: false}
}

// Retryable returns a retryable infrastructure error, surfaced as 503
// RETRY_LATER per §7.
func Retryable(message string) *Error {
	return &Error{Code: RetryLater, Message: message, Retryable: true}
}

// As is a thin wrapper over errors.As for callers that don't want to spell
// out the target type.
func As(err error) (*Error, bool) {
	var de *Error
	ok := errors.As(err, &de)
	return de, ok
}
