package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seatcore/internal/domainerr"
	"github.com/iliyamo/seatcore/internal/events"
	"github.com/iliyamo/seatcore/internal/idempotency"
	"github.com/iliyamo/seatcore/internal/store"
)

// parseUintParam extracts and validates an unsigned-integer path param.
func parseUintParam(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// idempotencyKeyFromHeader reads the caller-supplied idempotency key,
// falling back to a fresh uuid so an omitted header never causes two
// legitimate requests to collide under the same key.
func idempotencyKeyFromHeader(c echo.Context) string {
	if k := c.Request().Header.Get("x-idempotency-key"); k != "" {
		return k
	}
	return uuid.NewString()
}

func jsonMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func errJSON(c echo.Context, status int, code, details string) error {
	return c.JSON(status, echo.Map{"success": false, "error": code, "details": details})
}

// mapCoordinatorError renders a coordinator-layer error as the HTTP status
// table in §6/§7: domain errors get specific 4xx codes, infrastructure
// errors always render 503 RETRY_LATER.
func mapCoordinatorError(c echo.Context, err error) error {
	if err == idempotency.ErrRetryLater {
		return errJSON(c, http.StatusConflict, string(domainerr.RetryLater), "duplicate request in flight")
	}
	if de, ok := domainerr.As(err); ok {
		if de.Retryable {
			return errJSON(c, http.StatusServiceUnavailable, string(de.Code), de.Message)
		}
		return errJSON(c, statusForCode(de.Code), string(de.Code), de.Message)
	}
	return errJSON(c, http.StatusServiceUnavailable, string(domainerr.RetryLater), "internal error")
}

func statusForCode(code domainerr.Code) int {
	switch code {
	case domainerr.BookingNotFound:
		return http.StatusNotFound
	case domainerr.BookingOwnershipInvalid:
		return http.StatusForbidden
	case domainerr.BookingNotConfirmed, domainerr.BookingLocked, domainerr.SeatAlreadyConfirmed,
		domainerr.DisallowedTransition, domainerr.OverRefund, domainerr.TakeoverAlreadyActive:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func eventsBookingConfirmed(b *store.Booking) events.BookingConfirmedEvent {
	return events.BookingConfirmedEvent{
		BookingID:     b.ID,
		TripID:        b.TripID,
		CustomerPhone: b.CustomerPhone,
		SeatNumbers:   b.SeatNumbers,
		ConfirmedAt:   time.Now(),
	}
}
