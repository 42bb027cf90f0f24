package config

// NewRedisClient builds the client used for C2, the lock store. Unlike a
// response cache, lock-store unavailability is a correctness-relevant
// outage (see internal/lockstore's circuit breaker), so construction never
// silently degrades to a nil client the way the teacher's cache client did:
// callers get a real client plus whatever error Ping produced, and decide
// from there whether to treat the outage as retryable.

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates the C2 client from REDIS_URL (redis://[user:pass@]host:port/db)
// with REDIS_USERNAME / REDIS_PASSWORD overriding whatever credentials the URL carries.
func NewRedisClient(cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(firstNonEmpty(cfg.RedisURL, "redis://localhost:6379/0"))
	if err != nil {
		return nil, err
	}
	if cfg.RedisUsername != "" {
		opts.Username = cfg.RedisUsername
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pingErr := client.Ping(ctx).Err()
	return client, pingErr
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
