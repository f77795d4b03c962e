package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/troioi-vn/meo-gpt-connector/auth"
	"github.com/troioi-vn/meo-gpt-connector/credential"
	"github.com/troioi-vn/meo-gpt-connector/internal/config"
	"github.com/troioi-vn/meo-gpt-connector/internal/telemetry"
	"github.com/troioi-vn/meo-gpt-connector/ratelimit"
	"github.com/troioi-vn/meo-gpt-connector/server"
	"github.com/troioi-vn/meo-gpt-connector/sessions"
	"github.com/troioi-vn/meo-gpt-connector/store"
	"github.com/troioi-vn/meo-gpt-connector/token"
	"github.com/troioi-vn/meo-gpt-connector/upstream"
	"golang.org/x/crypto/bcrypt"
)

const memoryCleanupInterval = time.Minute

// connector is the wired process: one store handle shared by every component.
type connector struct {
	handler http.Handler
	store   store.Store
}

func (c *connector) Close() {
	if err := c.store.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close store")
	}
}

func newConnector(ctx context.Context, c config.Config) (*connector, error) {
	st, err := newStore(ctx, c)
	if err != nil {
		return nil, err
	}

	handler, err := newHandler(c, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &connector{handler: handler, store: st}, nil
}

func newStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	switch c.GetStoreBackend() {
	case config.StoreBackendMemory:
		log.Warn().Msg("Using the in-memory store; state is lost on restart and not shared between instances")
		st := store.NewMemoryStore()
		go cleanupLoop(ctx, st)
		return st, nil
	default:
		st, err := store.NewRedisStore(ctx, store.RedisConfig{
			URL:       c.GetRedisURL(),
			KeyPrefix: c.GetRedisKeyPrefix(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "[newStore] redis")
		}
		return st, nil
	}
}

func cleanupLoop(ctx context.Context, st *store.MemoryStore) {
	ticker := time.NewTicker(memoryCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := st.Cleanup(); removed > 0 {
				log.Debug().Int("removed", removed).Msg("expired store entries removed")
			}
		}
	}
}

func newHandler(c config.Config, st store.Store) (http.Handler, error) {
	metrics := telemetry.NewMetrics()

	cipher, err := credential.NewCipherFromHex(c.GetEncryptionKey())
	if err != nil {
		return nil, errors.Wrap(err, "[newHandler] credential cipher")
	}

	registry := token.NewStoreRevocationRegistry(st)
	tokens := token.New(token.NewHMACSigner(c.GetJWTSecret()), cipher,
		token.WithLifetime(c.GetTokenLifetime()),
		token.WithRevocationRegistry(registry),
		token.WithFailureHook(func(cause token.FailureCause) {
			metrics.TokenValidationFailed(string(cause))
		}),
	)

	client, err := clientCredentials(c)
	if err != nil {
		return nil, err
	}

	upstreamClient, err := upstream.NewHTTPClient(c.GetMainAppURL(), c.GetConnectorAPIKey(),
		upstream.WithTimeout(c.GetUpstreamTimeout()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[newHandler] upstream client")
	}

	broker, err := auth.NewBroker(
		auth.Config{
			Client:        client,
			ConfirmURL:    c.GetConfirmURL(),
			SessionSecret: []byte(c.GetHMACSharedSecret()),
		},
		sessions.NewStoreRepo(st, sessions.WithTTLs(c.GetSessionTTL(), c.GetCodeTTL())),
		tokens,
		registry,
		upstreamClient,
		auth.WithObserver(metrics),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[newHandler] broker")
	}

	srv, err := server.New(c, broker, ratelimit.New(st), st, metrics, server.WithVersion(version))
	if err != nil {
		return nil, errors.Wrap(err, "[newHandler] server")
	}
	return srv, nil
}

// clientCredentials prefers a configured bcrypt hash and otherwise hashes the
// plain secret once at startup.
func clientCredentials(c config.OAuthConfig) (auth.ClientCredentials, error) {
	if hash := c.GetClientSecretHash(); hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return auth.ClientCredentials{}, errors.Wrap(err, "[clientCredentials] OAUTH_CLIENT_SECRET_HASH is not a bcrypt hash")
		}
		return auth.ClientCredentials{ClientID: c.GetClientID(), SecretHash: []byte(hash)}, nil
	}

	client, err := auth.NewClientCredentials(c.GetClientID(), c.GetClientSecret(), bcrypt.DefaultCost)
	if err != nil {
		return auth.ClientCredentials{}, errors.Wrap(err, "[clientCredentials]")
	}
	return client, nil
}
