package intake

import (
	"encoding/json"
	"errors"
)

// ErrMalformedPaymentPayload is returned when the payment webhook body
// doesn't match the expected shape.
var ErrMalformedPaymentPayload = errors.New("intake: malformed payment payload")

// PaymentEvent is the normalized payment webhook body.
type PaymentEvent struct {
	GatewayEventID string `json:"gateway_event_id"`
	Status         string `json:"status"` // SUCCESS|SUCCEEDED|PAID|FAILED|FAILURE|CANCELLED
	Metadata       struct {
		BookingID uint64 `json:"booking_id"`
	} `json:"metadata"`
}

// ParsePaymentEvent decodes and validates a payment webhook body.
func ParsePaymentEvent(body []byte) (PaymentEvent, error) {
	var ev PaymentEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return PaymentEvent{}, ErrMalformedPaymentPayload
	}
	if ev.GatewayEventID == "" || ev.Status == "" || ev.Metadata.BookingID == 0 {
		return PaymentEvent{}, ErrMalformedPaymentPayload
	}
	return ev, nil
}
