package auth

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	connerrors "github.com/troioi-vn/meo-gpt-connector/internal/errors"
	"github.com/troioi-vn/meo-gpt-connector/oauthmodel"
	"github.com/troioi-vn/meo-gpt-connector/sessions"
	"github.com/troioi-vn/meo-gpt-connector/token"
	"github.com/troioi-vn/meo-gpt-connector/upstream"
)

// AuthorizationRedirect sends the agent back to its redirect URI with the
// exchange code and the state it supplied on /authorize.
type AuthorizationRedirect func(redirectURI string, code string, state string)

// ConfirmRedirect sends the user's browser to the upstream confirmation page.
type ConfirmRedirect func(location string)

// Observer receives broker outcomes for metrics.
type Observer interface {
	BrokerOperation(operation, outcome string)
	UpstreamRevokeFailed()
}

type nopObserver struct{}

func (nopObserver) BrokerOperation(string, string) {}
func (nopObserver) UpstreamRevokeFailed()          {}

// Config holds the fixed settings of the broker.
type Config struct {
	// Client is the single OAuth client allowed to use the connector.
	Client ClientCredentials

	// ConfirmURL is the upstream page where the user approves the connection,
	// e.g. "https://app.example.com/gpt-connect".
	ConfirmURL string

	// SessionSecret keys the session signature shared with the upstream app.
	SessionSecret []byte
}

// Broker runs the authorize, callback, token and revoke handshake.
type Broker struct {
	config      Config
	sessions    sessions.Repo
	tokens      *token.Manager
	revocations token.RevocationRegistry
	upstream    upstream.Client
	observer    Observer
	nowTime     func() time.Time
}

// BrokerOption defines a function type to modify the Broker instance.
type BrokerOption func(*Broker)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) BrokerOption {
	return func(b *Broker) {
		b.nowTime = nowFunc
	}
}

func WithObserver(observer Observer) BrokerOption {
	return func(b *Broker) {
		b.observer = observer
	}
}

// NewBroker initializes a Broker with its required dependencies.
func NewBroker(
	config Config,
	sessionRepo sessions.Repo,
	tokens *token.Manager,
	revocations token.RevocationRegistry,
	upstreamClient upstream.Client,
	options ...BrokerOption,
) (*Broker, error) {
	if config.Client.ClientID == "" || len(config.Client.SecretHash) == 0 {
		return nil, errors.New("[NewBroker] client credentials are required")
	}
	if _, err := url.ParseRequestURI(config.ConfirmURL); err != nil {
		return nil, errors.Wrap(err, "[NewBroker] invalid confirm url")
	}
	if len(config.SessionSecret) == 0 {
		return nil, errors.New("[NewBroker] session secret is required")
	}
	if sessionRepo == nil {
		return nil, errors.New("[NewBroker] sessions repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewBroker] token manager is required")
	}
	if revocations == nil {
		return nil, errors.New("[NewBroker] revocation registry is required")
	}
	if upstreamClient == nil {
		return nil, errors.New("[NewBroker] upstream client is required")
	}

	b := &Broker{
		config:      config,
		sessions:    sessionRepo,
		tokens:      tokens,
		revocations: revocations,
		upstream:    upstreamClient,
		observer:    nopObserver{},
		nowTime:     time.Now,
	}

	for _, opt := range options {
		opt(b)
	}
	return b, nil
}

// Authorize validates the agent's request, opens an authorization session and
// redirects to the upstream confirmation page with the signed session ID.
func (b *Broker) Authorize(ctx context.Context, parameters *oauthmodel.AuthorizationParameters, confirmRedirect ConfirmRedirect) (err error) {
	defer b.record(OperationAuthorize, &err)

	if err := parameters.Validate(b.config.Client.ClientID); err != nil {
		return invalidRequest(err)
	}

	sessionID := uuid.New().String()
	if err := b.sessions.SaveAuthorization(ctx, &sessions.AuthorizationSession{
		SessionID:   sessionID,
		State:       parameters.State,
		RedirectURI: parameters.RedirectURI,
	}); err != nil {
		return errors.Wrap(err, "[Broker.Authorize] failed to create session")
	}

	location, err := url.Parse(b.config.ConfirmURL)
	if err != nil {
		return errors.Wrap(err, "[Broker.Authorize] url.Parse")
	}
	q := location.Query()
	q.Set("session_id", sessionID)
	q.Set("session_sig", SessionSignature(b.config.SessionSecret, sessionID))
	location.RawQuery = q.Encode()

	confirmRedirect(location.String())
	return nil
}

// Callback consumes the authorization session, trades the upstream code for
// the user's credential and hands the agent a single-use exchange code.
func (b *Broker) Callback(ctx context.Context, sessionID, upstreamCode string, oauthRedirect AuthorizationRedirect) (err error) {
	defer b.record(OperationCallback, &err)

	if upstreamCode == "" {
		return invalidRequest(oauthmodel.ErrMissingCode)
	}

	session, err := b.sessions.TakeAuthorization(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return connerrors.ErrSessionExpired
		}
		return errors.Wrap(err, "[Broker.Callback] TakeAuthorization")
	}

	result, err := b.upstream.Exchange(ctx, upstreamCode)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("upstream code exchange failed")
		return connerrors.ErrUpstreamExchangeFailed
	}

	code := uuid.New().String()
	if err := b.sessions.SaveExchangeCode(ctx, &sessions.ExchangeCode{
		Code:       code,
		Credential: result.Credential,
		UserID:     result.UserID,
	}); err != nil {
		return errors.Wrap(err, "[Broker.Callback] SaveExchangeCode")
	}

	oauthRedirect(session.RedirectURI, code, session.State)
	return nil
}

// Token redeems an exchange code for a bearer token.
func (b *Broker) Token(ctx context.Context, parameters oauthmodel.TokenRequest) (resp *oauthmodel.TokenResponse, err error) {
	defer b.record(OperationToken, &err)

	if !b.config.Client.Verify(parameters.ClientID, parameters.ClientSecret) {
		return nil, connerrors.ErrInvalidClientCredentials
	}
	if parameters.GrantType != oauthmodel.AuthorizationCodeGrant {
		return nil, connerrors.ErrUnsupportedGrant
	}

	exchange, err := b.sessions.TakeExchangeCode(ctx, parameters.Code)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return nil, connerrors.ErrInvalidOrExpiredCode
		}
		return nil, errors.Wrap(err, "[Broker.Token] TakeExchangeCode")
	}

	accessToken, err := b.tokens.Issue(exchange.UserID, exchange.Credential)
	if err != nil {
		return nil, errors.Wrap(err, "[Broker.Token] Issue")
	}

	return &oauthmodel.TokenResponse{
		AccessToken: accessToken,
		TokenType:   oauthmodel.BearerTokenType,
		ExpiresIn:   int(b.tokens.Lifetime().Seconds()),
	}, nil
}

// Revoke blacklists a currently valid bearer token until its expiry and asks
// the upstream app to drop the underlying credential. The upstream call is
// best-effort; its failure is logged and counted but not returned.
func (b *Broker) Revoke(ctx context.Context, rawToken string) (err error) {
	defer b.record(OperationRevoke, &err)

	principal, err := b.tokens.Validate(ctx, rawToken)
	if err != nil {
		return errors.Wrap(err, "[Broker.Revoke] Validate")
	}

	jti, expiresAt := b.tokens.PeekMetadata(rawToken)
	if jti == "" {
		jti, expiresAt = principal.TokenID, principal.ExpiresAt
	}

	if err := b.revocations.Revoke(ctx, jti, token.RevocationTTL(expiresAt, b.nowTime())); err != nil {
		return errors.Wrap(err, "[Broker.Revoke] registry")
	}

	b.notifyUpstreamRevoke(ctx, principal)
	return nil
}

// Validate resolves a bearer token to its user and upstream credential.
func (b *Broker) Validate(ctx context.Context, rawToken string) (*token.Principal, error) {
	return b.tokens.Validate(ctx, rawToken)
}

func (b *Broker) notifyUpstreamRevoke(ctx context.Context, principal *token.Principal) {
	if err := b.upstream.Revoke(context.WithoutCancel(ctx), principal.Credential); err != nil {
		b.observer.UpstreamRevokeFailed()
		log.Ctx(ctx).Warn().Err(err).Int64("user_id", principal.UserID).Msg("upstream credential revocation failed")
	}
}

func (b *Broker) record(operation string, err *error) {
	outcome := OutcomeSuccess
	if *err != nil {
		outcome = OutcomeFailure
	}
	b.observer.BrokerOperation(operation, outcome)
}
