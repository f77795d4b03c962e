package token

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/troioi-vn/meo-gpt-connector/store"
)

// RevocationRegistry tracks invalidated token IDs until the tokens they block
// would have expired anyway.
type RevocationRegistry interface {
	// Revoke marks jti invalid for ttl. Revoking twice is not an error.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// StoreRevocationRegistry keeps revocation entries as "revoked:<jti>" keys so
// they expire on their own.
type StoreRevocationRegistry struct {
	store store.Store
}

var _ RevocationRegistry = (*StoreRevocationRegistry)(nil)

func NewStoreRevocationRegistry(s store.Store) *StoreRevocationRegistry {
	return &StoreRevocationRegistry{store: s}
}

func (r *StoreRevocationRegistry) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("token id cannot be empty")
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := r.store.Set(ctx, store.Key(store.KeyTypeRevoked, jti), []byte("1"), ttl); err != nil {
		return errors.Wrap(err, "[StoreRevocationRegistry.Revoke] Set")
	}
	return nil
}

func (r *StoreRevocationRegistry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := r.store.Exists(ctx, store.Key(store.KeyTypeRevoked, jti))
	if err != nil {
		return false, errors.Wrap(err, "[StoreRevocationRegistry.IsRevoked] Exists")
	}
	return revoked, nil
}

// RevocationTTL is the whole seconds left until expiresAt, never less than one
// second. A non-positive TTL would mean "no expiry" to some stores.
func RevocationTTL(expiresAt, now time.Time) time.Duration {
	remaining := expiresAt.Sub(now).Truncate(time.Second)
	if remaining < time.Second {
		return time.Second
	}
	return remaining
}
