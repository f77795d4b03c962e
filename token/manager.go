package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	connerrors "github.com/troioi-vn/meo-gpt-connector/internal/errors"
)

// DefaultLifetime is how long an issued bearer token stays valid.
const DefaultLifetime = 365 * 24 * time.Hour

// Claim names carried by a bearer token.
const (
	ClaimSubject    = "sub"
	ClaimCredential = "tok"
	ClaimExpiry     = "exp"
	ClaimIssuedAt   = "iat"
	ClaimTokenID    = "jti"
)

// FailureCause records why a token was rejected. Callers only ever see
// ErrInvalidToken; the cause exists for logs and metrics.
type FailureCause string

const (
	CauseExpired      FailureCause = "expired"
	CauseBadSignature FailureCause = "bad_signature"
	CauseMalformed    FailureCause = "malformed"
	CauseRevoked      FailureCause = "revoked"
)

// ValidationError is returned for every rejected token. It matches
// errors.Is(err, ErrInvalidToken) whatever the cause.
type ValidationError struct {
	Cause FailureCause
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return "invalid token (" + string(e.Cause) + "): " + e.Err.Error()
	}
	return "invalid token (" + string(e.Cause) + ")"
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool {
	return target == connerrors.ErrInvalidToken
}

// CredentialCipher seals the upstream credential inside a token.
type CredentialCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}

// Principal is what a valid bearer token resolves to.
type Principal struct {
	UserID     int64
	Credential string
	TokenID    string
	ExpiresAt  time.Time
}

// Manager issues and validates bearer tokens.
type Manager struct {
	signer      Signer
	cipher      CredentialCipher
	revocations RevocationRegistry
	lifetime    time.Duration
	nowFunc     func() time.Time
	onFailure   func(FailureCause)
}

type ManagerOption func(*Manager)

// WithLifetime overrides DefaultLifetime.
func WithLifetime(lifetime time.Duration) ManagerOption {
	return func(m *Manager) {
		m.lifetime = lifetime
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithRevocationRegistry makes Validate reject revoked tokens.
func WithRevocationRegistry(registry RevocationRegistry) ManagerOption {
	return func(m *Manager) {
		m.revocations = registry
	}
}

// WithFailureHook is called with the cause of every rejected token.
func WithFailureHook(hook func(FailureCause)) ManagerOption {
	return func(m *Manager) {
		m.onFailure = hook
	}
}

func New(signer Signer, cipher CredentialCipher, options ...ManagerOption) *Manager {
	m := &Manager{
		signer: signer,
		cipher: cipher,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.lifetime == 0 {
		m.lifetime = DefaultLifetime
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// Lifetime returns the validity period of issued tokens.
func (m *Manager) Lifetime() time.Duration {
	return m.lifetime
}

// Issue mints a bearer token for userID carrying an encrypted copy of the
// upstream credential.
func (m *Manager) Issue(userID int64, credential string) (string, error) {
	sealed, err := m.cipher.Encrypt(credential)
	if err != nil {
		return "", errors.Wrap(err, "[Manager.Issue] Encrypt")
	}

	jti, err := newTokenID()
	if err != nil {
		return "", errors.Wrap(err, "[Manager.Issue] newTokenID")
	}

	now := m.nowFunc()
	claims := jwt.MapClaims{
		ClaimSubject:    strconv.FormatInt(userID, 10),
		ClaimCredential: sealed,
		ClaimIssuedAt:   now.Unix(),
		ClaimExpiry:     now.Add(m.lifetime).Unix(),
		ClaimTokenID:    jti,
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Manager.Issue] Sign")
	}
	return signed, nil
}

// Validate verifies the signature and expiry of rawToken, checks the
// revocation registry and decrypts the embedded credential. Every rejection is
// a *ValidationError. Registry failures are returned as plain errors.
func (m *Manager) Validate(ctx context.Context, rawToken string) (*Principal, error) {
	principal, err := m.verify(rawToken)
	if err != nil {
		return nil, m.reject(err)
	}

	if m.revocations != nil {
		revoked, err := m.revocations.IsRevoked(ctx, principal.TokenID)
		if err != nil {
			return nil, errors.Wrap(err, "[Manager.Validate] IsRevoked")
		}
		if revoked {
			return nil, m.reject(&ValidationError{Cause: CauseRevoked})
		}
	}
	return principal, nil
}

// PeekMetadata reads the token ID and expiry without verifying anything. It
// returns zero values when the token cannot be decoded.
func (m *Manager) PeekMetadata(rawToken string) (string, time.Time) {
	parsed, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return "", time.Time{}
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", time.Time{}
	}

	jti, _ := claims[ClaimTokenID].(string)
	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}
	return jti, expiresAt
}

func (m *Manager) verify(rawToken string) (*Principal, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, &ValidationError{Cause: CauseMalformed, Err: errors.New("empty token")}
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.nowFunc),
	)
	parsed, err := parser.Parse(rawToken, m.signer.GetVerificationKey)
	if err != nil {
		return nil, &ValidationError{Cause: classify(err), Err: err}
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, &ValidationError{Cause: CauseMalformed, Err: errors.New("unexpected claims type")}
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return nil, &ValidationError{Cause: CauseMalformed, Err: err}
	}
	userID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return nil, &ValidationError{Cause: CauseMalformed, Err: errors.Wrap(err, "subject is not a user id")}
	}

	jti, _ := claims[ClaimTokenID].(string)
	if jti == "" {
		return nil, &ValidationError{Cause: CauseMalformed, Err: errors.New("token missing jti claim")}
	}

	sealed, _ := claims[ClaimCredential].(string)
	if sealed == "" {
		return nil, &ValidationError{Cause: CauseMalformed, Err: errors.New("token missing credential claim")}
	}
	credential, err := m.cipher.Decrypt(sealed)
	if err != nil {
		return nil, &ValidationError{Cause: CauseMalformed, Err: err}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, &ValidationError{Cause: CauseMalformed, Err: errors.New("token missing exp claim")}
	}

	return &Principal{
		UserID:     userID,
		Credential: credential,
		TokenID:    jti,
		ExpiresAt:  exp.Time,
	}, nil
}

func (m *Manager) reject(err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) && m.onFailure != nil {
		m.onFailure(verr.Cause)
	}
	return err
}

// classify maps a jwt parse error to a failure cause. The parser checks the
// signature before the claims, so an expired token with a bad signature is
// reported as a bad signature.
func classify(err error) FailureCause {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return CauseBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return CauseExpired
	default:
		return CauseMalformed
	}
}

func newTokenID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
