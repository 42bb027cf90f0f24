package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyBookingTokenAcceptsDerivedToken(t *testing.T) {
	token := BookingToken("booking-secret", 42)
	assert.True(t, VerifyBookingToken("booking-secret", 42, token))
}

func TestVerifyBookingTokenRejectsWrongBookingID(t *testing.T) {
	token := BookingToken("booking-secret", 42)
	assert.False(t, VerifyBookingToken("booking-secret", 43, token))
}

func TestVerifyBookingTokenRejectsWrongSecret(t *testing.T) {
	token := BookingToken("booking-secret", 42)
	assert.False(t, VerifyBookingToken("other-secret", 42, token))
}
