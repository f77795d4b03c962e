package errors

import "errors"

// Error taxonomy surfaced by the connector. Every failure leaving the broker
// is one of these (possibly wrapped); the server maps them to HTTP statuses.
var (
	// Authorize / token parameter errors
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUnsupportedGrant = errors.New("unsupported grant type")

	// Client errors
	ErrInvalidClientCredentials = errors.New("invalid client credentials")

	// Authorization flow errors
	ErrSessionExpired         = errors.New("session expired")
	ErrInvalidOrExpiredCode   = errors.New("invalid or expired code")
	ErrUpstreamExchangeFailed = errors.New("upstream exchange failed")

	// Token errors. Expired, tampered and revoked tokens all collapse to this.
	ErrInvalidToken = errors.New("invalid token")

	// Abuse control
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
