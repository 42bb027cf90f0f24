package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seatcore/internal/allocation"
	"github.com/iliyamo/seatcore/internal/httpapi/middleware"
)

// InventoryHandler serves operator-initiated seat overrides (C6).
type InventoryHandler struct {
	deps *Deps
}

// NewInventoryHandler constructs an InventoryHandler. Panics if deps is nil.
func NewInventoryHandler(deps *Deps) *InventoryHandler {
	if deps == nil {
		panic("nil dependency passed to NewInventoryHandler")
	}
	return &InventoryHandler{deps: deps}
}

type overrideBody struct {
	RouteID     uint64  `json:"route_id"`
	TripID      uint64  `json:"trip_id"`
	TripDate    string  `json:"trip_date"` // YYYY-MM-DD
	SeatNumbers []int   `json:"seat_numbers"`
	Reason      *string `json:"reason"`
}

// Block handles POST /inventory/block.
func (h *InventoryHandler) Block(c echo.Context) error {
	return h.apply(c, func(e *allocation.Engine, tx *sql.Tx, b overrideBody, date time.Time, actor string) error {
		return e.Block(c.Request().Context(), tx, b.RouteID, b.TripID, date, b.SeatNumbers, actor, b.Reason)
	})
}

// Unblock handles POST /inventory/unblock.
func (h *InventoryHandler) Unblock(c echo.Context) error {
	return h.apply(c, func(e *allocation.Engine, tx *sql.Tx, b overrideBody, date time.Time, actor string) error {
		return e.Unblock(c.Request().Context(), tx, b.RouteID, date, b.SeatNumbers, actor, b.Reason)
	})
}

func (h *InventoryHandler) apply(c echo.Context, f func(*allocation.Engine, *sql.Tx, overrideBody, time.Time, string) error) error {
	ctx := c.Request().Context()
	var body overrideBody
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
	}
	date, err := time.Parse("2006-01-02", body.TripDate)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "BAD_REQUEST", "invalid trip_date")
	}
	if len(body.SeatNumbers) == 0 {
		return errJSON(c, http.StatusBadRequest, "BAD_REQUEST", "seat_numbers required")
	}

	operatorID, ok := middleware.OperatorID(c)
	if !ok {
		return errJSON(c, http.StatusUnauthorized, "MISSING_TOKEN", "authenticated operator required")
	}
	actor := strconv.FormatUint(operatorID, 10)

	tx, err := h.deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return errJSON(c, http.StatusServiceUnavailable, "RETRY_LATER", "database unavailable")
	}
	defer func() { _ = tx.Rollback() }()

	if err := f(h.deps.Alloc, tx, body, date, actor); err != nil {
		if err == allocation.ErrSeatAlreadyConfirmed {
			return errJSON(c, http.StatusConflict, "SEAT_ALREADY_CONFIRMED", "seat already belongs to a confirmed booking")
		}
		return errJSON(c, http.StatusServiceUnavailable, "RETRY_LATER", "override failed")
	}

	if err := tx.Commit(); err != nil {
		return errJSON(c, http.StatusServiceUnavailable, "RETRY_LATER", "commit failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
