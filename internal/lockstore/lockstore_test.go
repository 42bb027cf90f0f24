package lockstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb, 5*time.Second, 3), mr
}

func TestAcquireThenAlreadyOwnedThenLockedByOther(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()
	ctx := context.Background()
	key := Key(42, 7)

	res, err := s.Acquire(ctx, key, "owner-a", time.Minute)
	require.NoError(t, err)
	require.Equal(t, Acquired, res)

	res, err = s.Acquire(ctx, key, "owner-a", time.Minute)
	require.NoError(t, err)
	require.Equal(t, AlreadyOwned, res)

	res, err = s.Acquire(ctx, key, "owner-b", time.Minute)
	require.NoError(t, err)
	require.Equal(t, LockedByOther, res)
}

func TestExtendRequiresOwnership(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()
	ctx := context.Background()
	key := Key(1, 1)

	_, err := s.Acquire(ctx, key, "owner-a", time.Minute)
	require.NoError(t, err)

	res, err := s.Extend(ctx, key, "owner-b", time.Minute)
	require.NoError(t, err)
	require.Equal(t, NotOwner, res)

	res, err = s.Extend(ctx, key, "owner-a", 2*time.Minute)
	require.NoError(t, err)
	require.Equal(t, Extended, res)

	mr.FastForward(90 * time.Second)
	ttl := mr.TTL(key)
	require.Greater(t, ttl, time.Duration(0), "extended lock must still be alive after the original TTL would have lapsed")
}

func TestExtendOnMissingKeyIsNotFound(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()

	res, err := s.Extend(context.Background(), Key(1, 1), "owner-a", time.Minute)
	require.NoError(t, err)
	require.Equal(t, NotFound, res)
}

func TestReleaseRequiresOwnership(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()
	ctx := context.Background()
	key := Key(1, 1)

	_, err := s.Acquire(ctx, key, "owner-a", time.Minute)
	require.NoError(t, err)

	res, err := s.Release(ctx, key, "owner-b")
	require.NoError(t, err)
	require.Equal(t, NotOwner, res)

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	require.True(t, exists, "a release by the wrong owner must not delete the key")

	res, err = s.Release(ctx, key, "owner-a")
	require.NoError(t, err)
	require.Equal(t, Released, res)

	exists, err = s.Exists(ctx, key)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestExpireForceDeletesRegardlessOfOwner(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()
	ctx := context.Background()
	key := Key(1, 1)

	_, err := s.Acquire(ctx, key, "owner-a", time.Minute)
	require.NoError(t, err)

	res, err := s.Expire(ctx, key)
	require.NoError(t, err)
	require.Equal(t, Released, res)

	res, err = s.Expire(ctx, key)
	require.NoError(t, err)
	require.Equal(t, NotFound, res)
}

func TestClaimNonceRejectsReplay(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()
	ctx := context.Background()

	first, err := s.ClaimNonce(ctx, "payment", "nonce-1", time.Hour)
	require.NoError(t, err)
	require.True(t, first)

	second, err := s.ClaimNonce(ctx, "payment", "nonce-1", time.Hour)
	require.NoError(t, err)
	require.False(t, second, "a nonce presented twice within the TTL window must be rejected")

	third, err := s.ClaimNonce(ctx, "payment", "nonce-2", time.Hour)
	require.NoError(t, err)
	require.True(t, third, "a distinct nonce must still be claimable")
}

func TestClaimNonceAllowsReuseAfterTTLExpiry(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()
	ctx := context.Background()

	_, err := s.ClaimNonce(ctx, "payment", "nonce-1", time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	ok, err := s.ClaimNonce(ctx, "payment", "nonce-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "nonce must be claimable again once its TTL has lapsed")
}

func TestSetBlockedSeatsCacheReplacesMembers(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()
	ctx := context.Background()

	require.NoError(t, s.SetBlockedSeatsCache(ctx, 5, "2026-08-01", []int{1, 2, 3}))
	key := BlockedSeatsCacheKey(5, "2026-08-01")
	members, err := mr.SetMembers(key)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"1", "2", "3"}, members)

	require.NoError(t, s.SetBlockedSeatsCache(ctx, 5, "2026-08-01", []int{9}))
	members, err = mr.SetMembers(key)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"9"}, members)
}

func TestSetBlockedSeatsCacheEmptyClearsSet(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()
	ctx := context.Background()

	require.NoError(t, s.SetBlockedSeatsCache(ctx, 5, "2026-08-01", []int{1}))
	require.NoError(t, s.SetBlockedSeatsCache(ctx, 5, "2026-08-01", nil))

	exists := mr.Exists(BlockedSeatsCacheKey(5, "2026-08-01"))
	require.False(t, exists)
}

func TestCircuitBreakerOpensAfterConsecutiveFailuresAndClosesOnSuccess(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := New(rdb, 50*time.Millisecond, 2)
	ctx := context.Background()

	mr.Close() // every call now fails at the transport level

	_, err := s.Acquire(ctx, "k", "o", time.Minute)
	require.Error(t, err)
	_, err = s.Acquire(ctx, "k", "o", time.Minute)
	require.Error(t, err)

	_, err = s.Acquire(ctx, "k", "o", time.Minute)
	require.ErrorIs(t, err, ErrCircuitOpen, "threshold consecutive failures must trip the breaker")

	time.Sleep(60 * time.Millisecond)

	mr2 := miniredis.NewMiniRedis()
	if err := mr2.Start(); err != nil {
		t.Fatalf("failed to start second miniredis: %v", err)
	}
	// point the same store at a fresh, live instance once the breaker window
	// has elapsed to confirm a subsequent success resets the failure count.
	s.rdb = redis.NewClient(&redis.Options{Addr: mr2.Addr()})
	res, err := s.Acquire(ctx, "k", "o", time.Minute)
	require.NoError(t, err)
	require.Equal(t, Acquired, res)
	require.Equal(t, 0, s.failures)
}
