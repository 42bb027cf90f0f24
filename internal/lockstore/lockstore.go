// Package lockstore is C3, a thin typed wrapper over Redis atomic scripts
// that implement distributed seat locks. Every operation is grounded in the
// same primitive: a Lua script that reads and writes a single key under one
// round trip, so partial states are impossible. Style follows the seat-lock
// repositories found across the booking-system examples in this codebase's
// lineage (TxPipeline + compare-and-delete Lua for release, SETNX + Lua
// compare-and-extend for renewal), generalized to trip/seat keys and to a
// typed result enum instead of bare errors.
package lockstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result is the typed outcome of a lock operation.
type Result int

const (
	Acquired Result = iota
	AlreadyOwned
	LockedByOther
	Extended
	NotOwner
	NotFound
	Released
)

func (r Result) String() string {
	switch r {
	case Acquired:
		return "ACQUIRED"
	case AlreadyOwned:
		return "ALREADY_OWNED"
	case LockedByOther:
		return "LOCKED_BY_OTHER"
	case Extended:
		return "EXTENDED"
	case NotOwner:
		return "NOT_OWNER"
	case NotFound:
		return "NOT_FOUND"
	case Released:
		return "RELEASED"
	default:
		return "UNKNOWN"
	}
}

// ErrCircuitOpen is returned instead of hitting Redis when the circuit
// breaker judges the backend unavailable.
var ErrCircuitOpen = errors.New("lockstore: circuit open")

// Key returns the canonical lock key for a seat on a trip.
func Key(tripID uint64, seatNumber int) string {
	return fmt.Sprintf("lock:trip:%d:seat:%d", tripID, seatNumber)
}

// BookingCancelKey returns the per-booking cancellation lock key.
func BookingCancelKey(bookingID uint64) string {
	return fmt.Sprintf("lock:booking:%d:cancel", bookingID)
}

// Store wraps a Redis client with a simple consecutive-failure circuit
// breaker, since C2 unavailability must be surfaced as a temporary outage
// rather than retried forever inline.
type Store struct {
	rdb        *redis.Client
	openFor    time.Duration
	threshold  int
	mu         sync.Mutex
	failures   int
	openUntil  time.Time
}

// New returns a Store. openFor is how long the circuit stays open after
// threshold consecutive transport failures; threshold defaults to 3 when 0.
func New(rdb *redis.Client, openFor time.Duration, threshold int) *Store {
	if threshold <= 0 {
		threshold = 3
	}
	return &Store{rdb: rdb, openFor: openFor, threshold: threshold}
}

func (s *Store) circuitOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.openUntil.IsZero() && time.Now().Before(s.openUntil)
}

func (s *Store) recordResult(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.failures = 0
		s.openUntil = time.Time{}
		return
	}
	s.failures++
	if s.failures >= s.threshold {
		s.openUntil = time.Now().Add(s.openFor)
	}
}

var acquireScript = redis.NewScript(`
	local key = KEYS[1]
	local owner = ARGV[1]
	local ttl_ms = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		redis.call('SET', key, owner, 'PX', ttl_ms)
		return 0
	elseif current == owner then
		return 1
	else
		return 2
	end
`)

// Acquire attempts to take ownership of key for owner with the given TTL.
// A re-acquire by the same owner does not extend the TTL beyond whatever
// remains, matching the "re-acquire is idempotent, not a renewal" contract.
func (s *Store) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (Result, error) {
	if s.circuitOpen() {
		return NotFound, ErrCircuitOpen
	}
	v, err := acquireScript.Run(ctx, s.rdb, []string{key}, owner, ttl.Milliseconds()).Int()
	s.recordResult(err)
	if err != nil {
		return NotFound, fmt.Errorf("lockstore: acquire %s: %w", key, err)
	}
	switch v {
	case 0:
		return Acquired, nil
	case 1:
		return AlreadyOwned, nil
	default:
		return LockedByOther, nil
	}
}

var extendScript = redis.NewScript(`
	local key = KEYS[1]
	local owner = ARGV[1]
	local ttl_ms = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		return 0
	elseif current ~= owner then
		return 1
	else
		redis.call('PEXPIRE', key, ttl_ms)
		return 2
	end
`)

// Extend renews the TTL on key for owner, failing if the lock is absent or
// held by someone else.
func (s *Store) Extend(ctx context.Context, key, owner string, ttl time.Duration) (Result, error) {
	if s.circuitOpen() {
		return NotFound, ErrCircuitOpen
	}
	v, err := extendScript.Run(ctx, s.rdb, []string{key}, owner, ttl.Milliseconds()).Int()
	s.recordResult(err)
	if err != nil {
		return NotFound, fmt.Errorf("lockstore: extend %s: %w", key, err)
	}
	switch v {
	case 0:
		return NotFound, nil
	case 1:
		return NotOwner, nil
	default:
		return Extended, nil
	}
}

var releaseScript = redis.NewScript(`
	local key = KEYS[1]
	local owner = ARGV[1]

	local current = redis.call('GET', key)
	if current == false then
		return 0
	elseif current ~= owner then
		return 1
	else
		redis.call('DEL', key)
		return 2
	end
`)

// Release drops key if owner currently holds it.
func (s *Store) Release(ctx context.Context, key, owner string) (Result, error) {
	if s.circuitOpen() {
		return NotFound, ErrCircuitOpen
	}
	v, err := releaseScript.Run(ctx, s.rdb, []string{key}, owner).Int()
	s.recordResult(err)
	if err != nil {
		return NotFound, fmt.Errorf("lockstore: release %s: %w", key, err)
	}
	switch v {
	case 0:
		return NotFound, nil
	case 1:
		return NotOwner, nil
	default:
		return Released, nil
	}
}

// Expire force-deletes key irrespective of owner. Reserved for callers
// (reconciliation, state-machine release hooks) that have already proven
// domain authority through C5/C9; it does not check ownership.
func (s *Store) Expire(ctx context.Context, key string) (Result, error) {
	if s.circuitOpen() {
		return NotFound, ErrCircuitOpen
	}
	n, err := s.rdb.Del(ctx, key).Result()
	s.recordResult(err)
	if err != nil {
		return NotFound, fmt.Errorf("lockstore: expire %s: %w", key, err)
	}
	if n == 0 {
		return NotFound, nil
	}
	return Released, nil
}

// Exists reports whether key is currently set, used by orphan reconciliation
// to probe whether C2 still holds at least one of a booking's lock keys.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if s.circuitOpen() {
		return false, ErrCircuitOpen
	}
	n, err := s.rdb.Exists(ctx, key).Result()
	s.recordResult(err)
	if err != nil {
		return false, fmt.Errorf("lockstore: exists %s: %w", key, err)
	}
	return n > 0, nil
}

// NonceKey returns the replay-protection key for a scope+nonce pair.
func NonceKey(scope, nonce string) string {
	return fmt.Sprintf("nonce:%s:%s", scope, nonce)
}

// ClaimNonce atomically records a one-time-use nonce under scope, returning
// true if this is the first time it has been seen within ttl (P8). A second
// presentation of the same nonce within the window returns false.
func (s *Store) ClaimNonce(ctx context.Context, scope, nonce string, ttl time.Duration) (bool, error) {
	if s.circuitOpen() {
		return false, ErrCircuitOpen
	}
	ok, err := s.rdb.SetNX(ctx, NonceKey(scope, nonce), "1", ttl).Result()
	s.recordResult(err)
	if err != nil {
		return false, fmt.Errorf("lockstore: claim nonce %s/%s: %w", scope, nonce, err)
	}
	return ok, nil
}

// BlockedSeatsCacheKey returns the cache key mirroring the blocked-seat set
// for a route+date, kept in C2 for fast availability queries (§4.4).
func BlockedSeatsCacheKey(routeID uint64, tripDate string) string {
	return fmt.Sprintf("blocked:route:%d:date:%s", routeID, tripDate)
}

// SetBlockedSeatsCache replaces the cached blocked-seat set for a route+date.
func (s *Store) SetBlockedSeatsCache(ctx context.Context, routeID uint64, tripDate string, seatNumbers []int) error {
	if s.circuitOpen() {
		return ErrCircuitOpen
	}
	key := BlockedSeatsCacheKey(routeID, tripDate)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(seatNumbers) > 0 {
		members := make([]interface{}, len(seatNumbers))
		for i, n := range seatNumbers {
			members[i] = n
		}
		pipe.SAdd(ctx, key, members...)
	}
	_, err := pipe.Exec(ctx)
	s.recordResult(err)
	if err != nil {
		return fmt.Errorf("lockstore: set blocked cache %s: %w", key, err)
	}
	return nil
}
