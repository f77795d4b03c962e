package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or has expired.
var ErrNotFound = errors.New("key not found")

// Store is a key-value store with native per-key expiry. It holds every
// short-lived record the connector needs; nothing else is kept in process.
type Store interface {
	// Set stores value under key for ttl. A zero ttl is rejected.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// TakeOnce atomically reads and removes key. Of any number of concurrent
	// callers exactly one receives the value; the others get ErrNotFound.
	TakeOnce(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// IncrWithExpiry increments the counter under key and returns the new
	// value. When the increment creates the key, its expiry is set to ttl;
	// later increments leave the expiry untouched.
	IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Key layout shared by every backend.
const (
	KeyTypeSession   = "session"
	KeyTypeCode      = "code"
	KeyTypeRevoked   = "revoked"
	KeyTypeRateLimit = "ratelimit"
)

// Key builds "<type>:<id>".
func Key(keyType, id string) string {
	return keyType + ":" + id
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}
	return nil
}
