package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/troioi-vn/meo-gpt-connector/store"
)

// backend pairs a store with a way of moving its clock forward.
type backend struct {
	store   store.Store
	advance func(time.Duration)
}

func memoryBackend(t *testing.T) backend {
	t.Helper()
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := store.NewMemoryStore(store.WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}))
	return backend{
		store: s,
		advance: func(d time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			now = now.Add(d)
		},
	}
}

func redisBackend(t *testing.T) backend {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return backend{
		store:   store.NewRedisStoreWithClient(client, "test:"),
		advance: mr.FastForward,
	}
}

func eachBackend(t *testing.T, fn func(t *testing.T, b backend)) {
	t.Run("memory", func(t *testing.T) { fn(t, memoryBackend(t)) })
	t.Run("redis", func(t *testing.T) { fn(t, redisBackend(t)) })
}

func TestStore_SetGetDelete(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()

		require.NoError(t, b.store.Set(ctx, "session:1", []byte(`{"state":"abc"}`), time.Minute))

		got, err := b.store.Get(ctx, "session:1")
		require.NoError(t, err)
		require.Equal(t, `{"state":"abc"}`, string(got))

		exists, err := b.store.Exists(ctx, "session:1")
		require.NoError(t, err)
		require.True(t, exists)

		require.NoError(t, b.store.Delete(ctx, "session:1"))
		_, err = b.store.Get(ctx, "session:1")
		require.ErrorIs(t, err, store.ErrNotFound)

		// Deleting again is a no-op
		require.NoError(t, b.store.Delete(ctx, "session:1"))
	})
}

func TestStore_Expiry(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()

		require.NoError(t, b.store.Set(ctx, "code:1", []byte("x"), 300*time.Second))

		b.advance(299 * time.Second)
		_, err := b.store.Get(ctx, "code:1")
		require.NoError(t, err)

		b.advance(2 * time.Second)
		_, err = b.store.Get(ctx, "code:1")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = b.store.TakeOnce(ctx, "code:1")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestStore_RejectsNonPositiveTTL(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		require.Error(t, b.store.Set(ctx, "k", []byte("v"), 0))
		require.Error(t, b.store.Set(ctx, "k", []byte("v"), -time.Second))
		_, err := b.store.IncrWithExpiry(ctx, "k", 0)
		require.Error(t, err)
	})
}

func TestStore_TakeOnce(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()

		require.NoError(t, b.store.Set(ctx, "code:abc", []byte("payload"), time.Minute))

		got, err := b.store.TakeOnce(ctx, "code:abc")
		require.NoError(t, err)
		require.Equal(t, "payload", string(got))

		_, err = b.store.TakeOnce(ctx, "code:abc")
		require.ErrorIs(t, err, store.ErrNotFound)

		exists, err := b.store.Exists(ctx, "code:abc")
		require.NoError(t, err)
		require.False(t, exists)
	})
}

func TestStore_TakeOnceConcurrent(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		require.NoError(t, b.store.Set(ctx, "code:race", []byte("payload"), time.Minute))

		const callers = 32
		var winners, losers atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := b.store.TakeOnce(ctx, "code:race")
				if err == nil {
					winners.Add(1)
				} else if err == store.ErrNotFound {
					losers.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		require.EqualValues(t, 1, winners.Load())
		require.EqualValues(t, callers-1, losers.Load())
	})
}

func TestStore_IncrWithExpiry(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()

		for want := int64(1); want <= 3; want++ {
			got, err := b.store.IncrWithExpiry(ctx, "ratelimit:ip:1.2.3.4", time.Minute)
			require.NoError(t, err)
			require.Equal(t, want, got)
		}

		// Later increments do not extend the window
		b.advance(50 * time.Second)
		got, err := b.store.IncrWithExpiry(ctx, "ratelimit:ip:1.2.3.4", time.Minute)
		require.NoError(t, err)
		require.EqualValues(t, 4, got)

		b.advance(11 * time.Second)
		got, err = b.store.IncrWithExpiry(ctx, "ratelimit:ip:1.2.3.4", time.Minute)
		require.NoError(t, err)
		require.EqualValues(t, 1, got)
	})
}

func TestRedisStore_KeyPrefixAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	s := store.NewRedisStoreWithClient(client, "meo:")
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, store.Key(store.KeyTypeSession, "abc"), []byte("v"), 600*time.Second))
	require.True(t, mr.Exists("meo:session:abc"))
	require.Equal(t, 600*time.Second, mr.TTL("meo:session:abc"))

	_, err := s.IncrWithExpiry(ctx, store.Key(store.KeyTypeRateLimit, "user:42"), time.Minute)
	require.NoError(t, err)
	require.Equal(t, time.Minute, mr.TTL("meo:ratelimit:user:42"))
}

func TestNewRedisStore_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := store.NewRedisStore(context.Background(), store.RedisConfig{URL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Ping(context.Background()))

	_, err = store.NewRedisStore(context.Background(), store.RedisConfig{})
	require.Error(t, err)

	_, err = store.NewRedisStore(context.Background(), store.RedisConfig{URL: "://bad"})
	require.Error(t, err)
}

func TestMemoryStore_Cleanup(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := store.NewMemoryStore(store.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, s.Set(ctx, "b", []byte("1"), time.Hour))

	ttl, err := s.TTL("b")
	require.NoError(t, err)
	require.Equal(t, time.Hour, ttl)

	now = now.Add(2 * time.Second)
	require.Equal(t, 1, s.Cleanup())

	_, err = s.TTL("a")
	require.ErrorIs(t, err, store.ErrNotFound)
}
