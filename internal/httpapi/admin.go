package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seatcore/internal/reconcile"
)

// AdminHandler serves operator-tooling endpoints that trigger reconciliation
// passes on demand instead of waiting for their scheduled tick.
type AdminHandler struct {
	deps      *Deps
	reconcile *reconcile.Loop
}

// NewAdminHandler constructs an AdminHandler. Panics if a dependency is nil.
func NewAdminHandler(deps *Deps, loop *reconcile.Loop) *AdminHandler {
	if deps == nil || loop == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{deps: deps, reconcile: loop}
}

type reconcileOrphansBody struct {
	BookingIDs []uint64 `json:"booking_ids"`
}

// ReconcileOrphans handles POST /admin/reconcile/orphans: an operator, after
// suspecting a lock-store restart dropped live HOLD locks, submits the
// affected booking ids for the orphan-lock probe (scenario 3) instead of
// waiting for the next scheduled ExpireHolds sweep, which only catches
// deadline expiry and not lock loss.
func (h *AdminHandler) ReconcileOrphans(c echo.Context) error {
	ctx := c.Request().Context()
	var body reconcileOrphansBody
	if err := c.Bind(&body); err != nil || len(body.BookingIDs) == 0 {
		return errJSON(c, http.StatusBadRequest, "BAD_REQUEST", "booking_ids is required")
	}

	reconciled, err := h.reconcile.ReconcileOrphans(ctx, body.BookingIDs)
	if err != nil {
		return errJSON(c, http.StatusServiceUnavailable, "RETRY_LATER", "reconciliation failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "reconciled": reconciled})
}
