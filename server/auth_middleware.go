package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	connerrors "github.com/troioi-vn/meo-gpt-connector/internal/errors"
	"github.com/troioi-vn/meo-gpt-connector/ratelimit"
	"github.com/troioi-vn/meo-gpt-connector/token"
)

// Scopes reported to the rate-limit metric.
const (
	rateLimitScopeIP   = "ip"
	rateLimitScopeUser = "user"
)

type principalKey struct{}

// PrincipalFromContext returns the principal stored by RequireBearer.
func PrincipalFromContext(ctx context.Context) (*token.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(*token.Principal)
	return principal, ok && principal != nil
}

// RequireBearer validates the bearer token and stores the resolved principal
// (user and upstream credential) in the request context.
func (s *Server) RequireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.broker.Validate(r.Context(), bearerToken(r))
		if err != nil {
			logValidationFailure(r, err)
			writeError(w, r, err)
			return
		}

		ctx := log.Ctx(r.Context()).With().Int64("user_id", principal.UserID).Logger().WithContext(r.Context())
		ctx = context.WithValue(ctx, principalKey{}, principal)
		next(w, r.WithContext(ctx))
	}
}

// RateLimitByIP applies the per-minute quota to the calling address.
func (s *Server) RateLimitByIP(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.allow(w, r, ratelimit.IPKey(clientIP(r)), rateLimitScopeIP) {
			return
		}
		next(w, r)
	}
}

// RateLimitByUser applies the per-minute quota to the authenticated user. It
// must run after RequireBearer.
func (s *Server) RateLimitByUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, r, connerrors.ErrInvalidToken)
			return
		}
		if !s.allow(w, r, ratelimit.UserKey(strconv.FormatInt(principal.UserID, 10)), rateLimitScopeUser) {
			return
		}
		next(w, r)
	}
}

// allow answers the request itself and returns false when the key is over
// quota or the counter cannot be read.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, key, scope string) bool {
	allowed, err := s.limiter.Allow(r.Context(), key, s.config.GetRateLimitPerMinute())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "[Server.allow] rate limiter"))
		return false
	}
	if !allowed {
		s.metrics.RateLimited(scope)
		log.Ctx(r.Context()).Warn().Str("key", key).Msg("rate limit exceeded")
		writeError(w, r, connerrors.ErrRateLimitExceeded)
		return false
	}
	return true
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func logValidationFailure(r *http.Request, err error) {
	var verr *token.ValidationError
	if errors.As(err, &verr) {
		log.Ctx(r.Context()).Debug().Str("cause", string(verr.Cause)).Msg("bearer token rejected")
	}
}
