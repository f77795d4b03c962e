package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/troioi-vn/meo-gpt-connector/ratelimit"
	"github.com/troioi-vn/meo-gpt-connector/store"
)

func TestLimiter_SixtyFirstRequestRejected(t *testing.T) {
	limiter := ratelimit.New(store.NewMemoryStore())
	ctx := context.Background()

	for i := 1; i <= 60; i++ {
		allowed, err := limiter.Allow(ctx, ratelimit.IPKey("10.0.0.1"), 60)
		require.NoError(t, err)
		require.True(t, allowed, "request %d", i)
	}

	allowed, err := limiter.Allow(ctx, ratelimit.IPKey("10.0.0.1"), 60)
	require.NoError(t, err)
	require.False(t, allowed)

	// Other keys have their own window
	allowed, err = limiter.Allow(ctx, ratelimit.IPKey("10.0.0.2"), 60)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestLimiter_WindowResetsFromFirstRequest(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	limiter := ratelimit.New(store.NewRedisStoreWithClient(client, ""))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, ratelimit.UserKey("42"), 3)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	require.Equal(t, 60*time.Second, mr.TTL("ratelimit:user:42"))

	mr.FastForward(30 * time.Second)
	allowed, err := limiter.Allow(ctx, ratelimit.UserKey("42"), 3)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 30*time.Second, mr.TTL("ratelimit:user:42"))

	mr.FastForward(31 * time.Second)
	allowed, err = limiter.Allow(ctx, ratelimit.UserKey("42"), 3)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestLimiter_CustomWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := store.NewMemoryStore(store.WithClock(func() time.Time { return now }))
	limiter := ratelimit.New(s, ratelimit.WithWindow(10*time.Second))
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "k", 1)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "k", 1)
	require.NoError(t, err)
	require.False(t, allowed)

	now = now.Add(10 * time.Second)
	allowed, err = limiter.Allow(ctx, "k", 1)
	require.NoError(t, err)
	require.True(t, allowed)
}
