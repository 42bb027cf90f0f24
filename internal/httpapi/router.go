package httpapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seatcore/internal/config"
	"github.com/iliyamo/seatcore/internal/httpapi/middleware"
	"github.com/iliyamo/seatcore/internal/idempotency"
	"github.com/iliyamo/seatcore/internal/reconcile"
	"github.com/iliyamo/seatcore/internal/store"
)

// RegisterRoutes wires every intake adapter and operator-facing endpoint
// onto e. Middleware order on the public groups follows §4.7: rate limit
// first (cheapest rejection), then signature/replay checks inside the
// handler itself (they need the raw body, which echo's own middleware
// chain can't see without buffering it twice).
func RegisterRoutes(
	e *echo.Echo,
	deps *Deps,
	messages *store.MessageLogRepo,
	idem *idempotency.Envelope,
	takeovers *store.OperatorTakeoverRepo,
	reconcileLoop *reconcile.Loop,
	webhookRL, cancelRL config.RateLimitConfig,
	operatorTokenTTL time.Duration,
	bcryptCost int,
) {
	health := NewHealthHandler(deps)
	e.GET("/health", health.Health)

	webhooks := NewWebhookHandler(deps, messages, idem)
	wh := e.Group("/webhooks", middleware.TokenBucket(webhookRL, deps.Redis))
	wh.POST("/chat", webhooks.Chat)
	wh.POST("/payment", webhooks.Payment)

	booking := NewBookingHandler(deps)
	bk := e.Group("/bookings", middleware.TokenBucket(cancelRL, deps.Redis), middleware.OptionalOperatorAuth(deps.JWTSecret))
	bk.POST("/:id/cancel", booking.Cancel)

	operators := NewOperatorHandler(deps, takeovers, operatorTokenTTL, bcryptCost)
	e.POST("/operators/register", operators.Register)
	e.POST("/operators/login", operators.Login)

	opAuth := e.Group("/operators", middleware.OperatorAuth(deps.JWTSecret))
	opAuth.POST("/takeover", operators.StartTakeover)
	opAuth.POST("/takeover/:session_id/release", operators.ReleaseTakeover)

	inventory := NewInventoryHandler(deps)
	inv := e.Group("/inventory", middleware.OperatorAuth(deps.JWTSecret))
	inv.POST("/block", inventory.Block)
	inv.POST("/unblock", inventory.Unblock)

	admin := NewAdminHandler(deps, reconcileLoop)
	adm := e.Group("/admin", middleware.OperatorAuth(deps.JWTSecret))
	adm.POST("/reconcile/orphans", admin.ReconcileOrphans)
}
