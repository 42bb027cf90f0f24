package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds every environment-driven setting from the service's
// environment contract. Required keys fail fast at startup via must;
// everything with a sane default uses getenv/envInt so a bare-bones local
// run doesn't need a full .env file.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	OperatorPhone string
	OperatorName  string

	HoldDuration time.Duration

	RateLimitWebhooks int
	RateLimitCancel   int

	PaymentWebhookSecret  string
	WhatsappWebhookSecret string
	BookingTokenSecret    string
	JWTSecret             string

	RedisURL      string
	RedisUsername string
	RedisPassword string

	RedisCircuitOpen time.Duration

	IdempotencyStartedTTL time.Duration

	CommissionRateBPS int
	BcryptCost        int

	RabbitMQURL string

	OperatorTokenTTL time.Duration
	NonceTTL         time.Duration

	PaymentSignatureTolerance time.Duration

	ReconcileInterval time.Duration
	ReconcileBatch    int
}

// Load reads the process environment into a Config.
func Load() Config {
	return Config{
		Env:      getenv("APP_ENV", "development"),
		Port:     getenv("APP_PORT", "8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		OperatorPhone: os.Getenv("OPERATOR_PHONE"),
		OperatorName:  os.Getenv("OPERATOR_NAME"),

		HoldDuration: time.Duration(envInt("HOLD_DURATION_MINUTES", 10)) * time.Minute,

		RateLimitWebhooks: envInt("RATE_LIMIT_WEBHOOKS", 60),
		RateLimitCancel:   envInt("RATE_LIMIT_CANCEL", 10),

		PaymentWebhookSecret:  os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		WhatsappWebhookSecret: os.Getenv("WHATSAPP_WEBHOOK_SECRET"),
		BookingTokenSecret:    os.Getenv("BOOKING_TOKEN_SECRET"),
		JWTSecret:             getenv("JWT_SECRET", "dev-secret-change-me"),

		RedisURL:      os.Getenv("REDIS_URL"),
		RedisUsername: os.Getenv("REDIS_USERNAME"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		RedisCircuitOpen: time.Duration(envInt("REDIS_CIRCUIT_OPEN_MS", 5000)) * time.Millisecond,

		IdempotencyStartedTTL: time.Duration(envInt("IDEMPOTENCY_STARTED_TTL_SECONDS", 300)) * time.Second,

		CommissionRateBPS: envInt("COMMISSION_RATE_BPS", 0),
		BcryptCost:        envInt("BCRYPT_COST", 10),

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		OperatorTokenTTL: time.Duration(envInt("OPERATOR_TOKEN_TTL_MINUTES", 60)) * time.Minute,
		NonceTTL:         time.Duration(envInt("NONCE_TTL_SECONDS", 86400)) * time.Second,

		PaymentSignatureTolerance: time.Duration(envInt("PAYMENT_SIGNATURE_TOLERANCE_SECONDS", 300)) * time.Second,

		ReconcileInterval: time.Duration(envInt("RECONCILE_INTERVAL_SECONDS", 30)) * time.Second,
		ReconcileBatch:    envInt("RECONCILE_BATCH_SIZE", 200),
	}
}

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
