package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePaymentEventAcceptsWellFormedBody(t *testing.T) {
	body := []byte(`{"gateway_event_id":"evt_1","status":"SUCCEEDED","metadata":{"booking_id":42}}`)
	ev, err := ParsePaymentEvent(body)
	assert.NoError(t, err)
	assert.Equal(t, "evt_1", ev.GatewayEventID)
	assert.Equal(t, uint64(42), ev.Metadata.BookingID)
}

func TestParsePaymentEventRejectsMissingBookingID(t *testing.T) {
	body := []byte(`{"gateway_event_id":"evt_1","status":"SUCCEEDED","metadata":{}}`)
	_, err := ParsePaymentEvent(body)
	assert.ErrorIs(t, err, ErrMalformedPaymentPayload)
}

func TestParsePaymentEventRejectsMissingStatus(t *testing.T) {
	body := []byte(`{"gateway_event_id":"evt_1","metadata":{"booking_id":42}}`)
	_, err := ParsePaymentEvent(body)
	assert.ErrorIs(t, err, ErrMalformedPaymentPayload)
}

func TestParsePaymentEventRejectsInvalidJSON(t *testing.T) {
	_, err := ParsePaymentEvent([]byte(`{not json`))
	assert.ErrorIs(t, err, ErrMalformedPaymentPayload)
}
