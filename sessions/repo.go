package sessions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/troioi-vn/meo-gpt-connector/store"
)

// ErrNotFound is returned when a record is absent, expired or already consumed.
var ErrNotFound = errors.New("session record not found")

// Repo stores the short-lived records of the authorization handshake. Both
// Take methods consume the record: a given ID yields its payload at most once.
type Repo interface {
	SaveAuthorization(ctx context.Context, session *AuthorizationSession) error
	TakeAuthorization(ctx context.Context, sessionID string) (*AuthorizationSession, error)

	SaveExchangeCode(ctx context.Context, code *ExchangeCode) error
	TakeExchangeCode(ctx context.Context, code string) (*ExchangeCode, error)
}

// StoreRepo is a Repo backed by the shared key-value store. Records are JSON
// under "session:<id>" and "code:<id>".
type StoreRepo struct {
	store            store.Store
	authorizationTTL time.Duration
	exchangeCodeTTL  time.Duration
}

var _ Repo = (*StoreRepo)(nil)

type RepoOption func(*StoreRepo)

// WithTTLs overrides AuthorizationTTL and ExchangeCodeTTL.
func WithTTLs(authorization, exchangeCode time.Duration) RepoOption {
	return func(r *StoreRepo) {
		r.authorizationTTL = authorization
		r.exchangeCodeTTL = exchangeCode
	}
}

func NewStoreRepo(s store.Store, options ...RepoOption) *StoreRepo {
	r := &StoreRepo{
		store:            s,
		authorizationTTL: AuthorizationTTL,
		exchangeCodeTTL:  ExchangeCodeTTL,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *StoreRepo) SaveAuthorization(ctx context.Context, session *AuthorizationSession) error {
	if session == nil || session.SessionID == "" {
		return errors.New("[StoreRepo.SaveAuthorization] session id is required")
	}
	if err := r.put(ctx, store.Key(store.KeyTypeSession, session.SessionID), session, r.authorizationTTL); err != nil {
		return errors.Wrap(err, "[StoreRepo.SaveAuthorization]")
	}
	return nil
}

func (r *StoreRepo) TakeAuthorization(ctx context.Context, sessionID string) (*AuthorizationSession, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}
	session := &AuthorizationSession{}
	if err := r.take(ctx, store.Key(store.KeyTypeSession, sessionID), session); err != nil {
		return nil, errors.Wrap(err, "[StoreRepo.TakeAuthorization]")
	}
	session.SessionID = sessionID
	return session, nil
}

func (r *StoreRepo) SaveExchangeCode(ctx context.Context, code *ExchangeCode) error {
	if code == nil || code.Code == "" {
		return errors.New("[StoreRepo.SaveExchangeCode] code is required")
	}
	if err := r.put(ctx, store.Key(store.KeyTypeCode, code.Code), code, r.exchangeCodeTTL); err != nil {
		return errors.Wrap(err, "[StoreRepo.SaveExchangeCode]")
	}
	return nil
}

func (r *StoreRepo) TakeExchangeCode(ctx context.Context, code string) (*ExchangeCode, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	exchange := &ExchangeCode{}
	if err := r.take(ctx, store.Key(store.KeyTypeCode, code), exchange); err != nil {
		return nil, errors.Wrap(err, "[StoreRepo.TakeExchangeCode]")
	}
	exchange.Code = code
	return exchange, nil
}

func (r *StoreRepo) put(ctx context.Context, key string, record any, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "json.Marshal")
	}
	return r.store.Set(ctx, key, data, ttl)
}

func (r *StoreRepo) take(ctx context.Context, key string, record any) error {
	data, err := r.store.TakeOnce(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(data, record); err != nil {
		return errors.Wrap(err, "json.Unmarshal")
	}
	return nil
}
