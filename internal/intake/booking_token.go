package intake

import (
	"crypto/hmac"
	"strconv"
)

// BookingToken derives the per-booking cancellation token a customer
// presents alongside `actor:"customer"` cancellations: an HMAC of the
// booking id under a service secret, so a customer can cancel without an
// account system fronting every request.
func BookingToken(secret string, bookingID uint64) string {
	return hmacHex(secret, []byte(strconv.FormatUint(bookingID, 10)))
}

// VerifyBookingToken constant-time compares a caller-supplied token
// against the expected one for bookingID.
func VerifyBookingToken(secret string, bookingID uint64, token string) bool {
	want := BookingToken(secret, bookingID)
	return hmac.Equal([]byte(want), []byte(token))
}
