package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/troioi-vn/meo-gpt-connector/store"
)

// DefaultWindow is the length of one counting window.
const DefaultWindow = 60 * time.Second

// Limiter is a fixed-window request counter. The window opens with the first
// request for a key and is not extended by later ones.
type Limiter struct {
	store  store.Store
	window time.Duration
}

type LimiterOption func(*Limiter)

func WithWindow(window time.Duration) LimiterOption {
	return func(l *Limiter) {
		l.window = window
	}
}

func New(s store.Store, options ...LimiterOption) *Limiter {
	l := &Limiter{
		store:  s,
		window: DefaultWindow,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Allow counts a request for key and reports whether it is within limit.
func (l *Limiter) Allow(ctx context.Context, key string, limit int) (bool, error) {
	count, err := l.store.IncrWithExpiry(ctx, store.Key(store.KeyTypeRateLimit, key), l.window)
	if err != nil {
		return false, errors.Wrap(err, "[Limiter.Allow] IncrWithExpiry")
	}
	return count <= int64(limit), nil
}

// IPKey and UserKey build the caller keys used by the HTTP surface.
func IPKey(addr string) string { return "ip:" + addr }

func UserKey(userID string) string { return "user:" + userID }
