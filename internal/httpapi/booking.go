package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seatcore/internal/coordinator"
	"github.com/iliyamo/seatcore/internal/httpapi/middleware"
	"github.com/iliyamo/seatcore/internal/intake"
)

// BookingHandler serves the customer/operator-facing booking endpoints.
type BookingHandler struct {
	deps *Deps
}

// NewBookingHandler constructs a BookingHandler. Panics if deps is nil.
func NewBookingHandler(deps *Deps) *BookingHandler {
	if deps == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{deps: deps}
}

type cancelBookingBody struct {
	Actor              string  `json:"actor"` // customer|operator|admin
	BookingToken       string  `json:"booking_token"`
	CustomerPhone      string  `json:"customer_phone"`
	CancellationReason *string `json:"cancellation_reason"`
}

// Cancel handles POST /bookings/:id/cancel. A customer actor must present
// the per-booking token (intake.BookingToken of the booking id under
// BookingTokenSecret) instead of an account session, since this domain has
// no customer login surface. No handler in this package issues that token.
func (h *BookingHandler) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	bookingID, err := parseUintParam(c, "id")
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "BAD_REQUEST", "invalid booking id")
	}

	var body cancelBookingBody
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
	}

	var operatorID uint64
	switch body.Actor {
	case "customer":
		if !intake.VerifyBookingToken(h.deps.BookingTokenSecret, bookingID, body.BookingToken) {
			return errJSON(c, http.StatusForbidden, "BOOKING_OWNERSHIP_INVALID", "booking token invalid")
		}
	case "operator", "admin":
		id, ok := middleware.OperatorID(c)
		if !ok {
			return errJSON(c, http.StatusUnauthorized, "MISSING_TOKEN", "authenticated operator required")
		}
		operatorID = id
	default:
		return errJSON(c, http.StatusBadRequest, "BAD_REQUEST", "actor must be customer, operator, or admin")
	}

	idemKey := idempotencyKeyFromHeader(c)
	resp, replayed, err := h.deps.Coord.Cancel(ctx, idemKey, coordinator.CancelRequest{
		BookingID:          bookingID,
		Actor:              body.Actor,
		CustomerPhone:      body.CustomerPhone,
		OperatorID:         operatorID,
		CancellationReason: body.CancellationReason,
	})
	if err != nil {
		return mapCoordinatorError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"booking_id": resp.BookingID,
		"status":     resp.Status,
		"idempotent": resp.Idempotent || replayed,
	})
}
