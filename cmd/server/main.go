package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/seatcore/internal/allocation"
	"github.com/iliyamo/seatcore/internal/audit"
	"github.com/iliyamo/seatcore/internal/booking"
	"github.com/iliyamo/seatcore/internal/config"
	"github.com/iliyamo/seatcore/internal/coordinator"
	"github.com/iliyamo/seatcore/internal/events"
	"github.com/iliyamo/seatcore/internal/httpapi"
	"github.com/iliyamo/seatcore/internal/idempotency"
	"github.com/iliyamo/seatcore/internal/lockstore"
	"github.com/iliyamo/seatcore/internal/logging"
	"github.com/iliyamo/seatcore/internal/reconcile"
	"github.com/iliyamo/seatcore/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// Non-fatal: a deployed environment supplies these vars directly.
	}

	cfg := config.Load()
	logger := logging.New(cfg.Env, cfg.LogLevel)

	db, err := store.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("redis ping failed at startup; lock store circuit breaker will engage on first use")
	}

	locks := lockstore.New(rdb, cfg.RedisCircuitOpen, 3)

	operators := store.NewOperatorRepo(db)
	routes := store.NewRouteRepo(db)
	trips := store.NewTripRepo(db)
	bookings := store.NewBookingRepo(db)
	cancellations := store.NewCancellationRepo(db)
	tickets := store.NewTicketAttachmentRepo(db)
	overrides := store.NewInventoryOverrideRepo(db)
	auditRepo := store.NewAuditRepo(db)
	messages := store.NewMessageLogRepo(db)
	takeovers := store.NewOperatorTakeoverRepo(db)

	alloc := allocation.New(trips, bookings, overrides, locks)
	machine := booking.New(bookings)
	idem := idempotency.New(db, auditRepo, cfg.IdempotencyStartedTTL)
	coord := coordinator.New(db, trips, routes, operators, bookings, cancellations, tickets, auditRepo, locks, alloc, machine, idem, cfg.HoldDuration)
	auditReader := audit.New(auditRepo)

	var publisher *events.Publisher
	if cfg.RabbitMQURL != "" {
		publisher, err = events.Dial(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("connect to rabbitmq; booking-confirmed events will not be published")
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	deps := &httpapi.Deps{
		Log:       logger,
		DB:        db,
		Redis:     rdb,
		Locks:     locks,
		Operators: operators,
		Routes:    routes,
		Trips:     trips,
		Bookings:  bookings,
		Takeovers: takeovers,
		Alloc:     alloc,
		Coord:     coord,
		Audit:     auditReader,
		Events:    publisher,

		JWTSecret:             cfg.JWTSecret,
		BookingTokenSecret:    cfg.BookingTokenSecret,
		PaymentWebhookSecret:  cfg.PaymentWebhookSecret,
		WhatsappWebhookSecret: cfg.WhatsappWebhookSecret,

		PaymentSignatureTolerance: cfg.PaymentSignatureTolerance,
		NonceTTL:                  cfg.NonceTTL,
	}

	reconcileLoop := reconcile.New(db, bookings, auditRepo, locks, machine)

	e := echo.New()
	httpapi.RegisterRoutes(e, deps, messages, idem, takeovers, reconcileLoop,
		config.WebhookRateLimit(cfg), config.CancelRateLimit(cfg),
		cfg.OperatorTokenTTL, cfg.BcryptCost)

	stop := make(chan struct{})
	defer close(stop)

	if cfg.RabbitMQURL != "" {
		go events.StartBookingConsumer(cfg.RabbitMQURL, logger, stop)
	}

	go runReconciliation(stop, reconcileLoop, cfg.ReconcileInterval, cfg.ReconcileBatch, logger)

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
	if err := e.Start(addr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

// runReconciliation ticks ExpireHolds at interval until stop is closed. It
// is the only caller of C9's frequent sweep; the on-demand orphan pass is
// triggered separately by operator tooling after a suspected C2 restart.
func runReconciliation(stop <-chan struct{}, loop *reconcile.Loop, interval time.Duration, batch int, logger zerolog.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			n, err := loop.ExpireHolds(ctx, batch)
			cancel()
			if err != nil {
				logger.Error().Err(err).Msg("reconcile: expire holds failed")
				continue
			}
			if n > 0 {
				logger.Info().Int("expired", n).Msg("reconcile: expired stale holds")
			}
		}
	}
}
