package domainerr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsNotRetryable(t *testing.T) {
	err := New(BookingNotFound, "no such booking")
	assert.False(t, err.Retryable)
	assert.Equal(t, "BOOKING_NOT_FOUND: no such booking", err.Error())
}

func TestRetryableIsRetryLater(t *testing.T) {
	err := Retryable("lock store unavailable")
	assert.True(t, err.Retryable)
	assert.Equal(t, RetryLater, err.Code)
}

func TestAsUnwrapsWrappedDomainError(t *testing.T) {
	base := New(SeatAlreadyConfirmed, "seat 12 already confirmed")
	wrapped := fmt.Errorf("allocate: %w", base)

	de, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, SeatAlreadyConfirmed, de.Code)
}

func TestAsReturnsFalseForPlainError(t *testing.T) {
	_, ok := As(fmt.Errorf("plain error, not a domain error"))
	assert.False(t, ok)
}
