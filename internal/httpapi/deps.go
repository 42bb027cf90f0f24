// Package httpapi wires the intake adapters (C7) to echo: routing,
// middleware ordering, request binding and JSON responses. Handler
// construction follows the teacher's pattern of a struct grouping its
// dependencies with a NewXHandler constructor that panics on a nil
// dependency, so a wiring mistake in cmd/server fails at startup instead
// of with a nil-pointer panic mid-request.
package httpapi

import (
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/seatcore/internal/allocation"
	"github.com/iliyamo/seatcore/internal/audit"
	"github.com/iliyamo/seatcore/internal/coordinator"
	"github.com/iliyamo/seatcore/internal/events"
	"github.com/iliyamo/seatcore/internal/lockstore"
	"github.com/iliyamo/seatcore/internal/store"
)

// Deps bundles every dependency a handler might need. Individual handler
// structs embed a pointer to this instead of taking every field
// positionally, since the webhook/booking/inventory/operator handlers all
// overlap heavily on which repositories and components they touch.
type Deps struct {
	Log   zerolog.Logger
	DB    *sql.DB
	Redis *redis.Client
	Locks *lockstore.Store

	Operators *store.OperatorRepo
	Routes    *store.RouteRepo
	Trips     *store.TripRepo
	Bookings  *store.BookingRepo
	Takeovers *store.OperatorTakeoverRepo

	Alloc   *allocation.Engine
	Coord   *coordinator.Coordinator
	Audit   *audit.Reader
	Events  *events.Publisher // nil when RabbitMQ is not configured

	JWTSecret             string
	BookingTokenSecret    string
	PaymentWebhookSecret  string
	WhatsappWebhookSecret string

	PaymentSignatureTolerance time.Duration
	NonceTTL                  time.Duration
}
