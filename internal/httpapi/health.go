package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandler serves the liveness/readiness probe.
type HealthHandler struct {
	deps *Deps
}

// NewHealthHandler constructs a HealthHandler. Panics if deps is nil.
func NewHealthHandler(deps *Deps) *HealthHandler {
	if deps == nil {
		panic("nil dependency passed to NewHealthHandler")
	}
	return &HealthHandler{deps: deps}
}

// Health handles GET /health. It pings both the MySQL ledger and the Redis
// lock store, since a booking request is only servable when both are up.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	status := http.StatusOK
	checks := echo.Map{}

	if err := h.deps.DB.PingContext(ctx); err != nil {
		checks["database"] = "down"
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = "up"
	}

	if err := h.deps.Redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = "down"
		status = http.StatusServiceUnavailable
	} else {
		checks["redis"] = "up"
	}

	return c.JSON(status, echo.Map{"success": status == http.StatusOK, "checks": checks})
}
