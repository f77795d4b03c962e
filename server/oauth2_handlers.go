package server

import (
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	connerrors "github.com/troioi-vn/meo-gpt-connector/internal/errors"
	"github.com/troioi-vn/meo-gpt-connector/oauthmodel"
)

// RevokeResponse acknowledges a successful revocation.
type RevokeResponse struct {
	Revoked bool `json:"revoked"`
}

// Authorize begins the authorization flow
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := oauthmodel.ParseAuthorizationParameters(r.URL.Query())

		confirmRedirect := func(location string) {
			http.Redirect(w, r, location, http.StatusFound)
		}

		if err := s.broker.Authorize(r.Context(), &params, confirmRedirect); err != nil {
			writeError(w, r, err)
			return
		}
	}
}

// Callback receives the browser back from the main app's confirmation page
// and forwards it to the agent's redirect URI with a fresh exchange code.
func (s *Server) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		oauthRedirect := func(redirectURI, code, state string) {
			if err := callbackRedirect(w, r, redirectURI, code, state); err != nil {
				s.renderCallbackFailed(w, r, err)
			}
		}

		err := s.broker.Callback(r.Context(), query.Get("session_id"), query.Get("code"), oauthRedirect)
		switch {
		case err == nil:
		case errors.Is(err, connerrors.ErrSessionExpired):
			s.renderSessionExpired(w, r)
		default:
			s.renderCallbackFailed(w, r, err)
		}
	}
}

// Token exchanges an exchange code for a bearer token
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, r, codeInvalidRequest, "Failed to parse form data", http.StatusBadRequest)
			return
		}

		tokenResponse, err := s.broker.Token(r.Context(), oauthmodel.ParseTokenRequest(r))
		if err != nil {
			writeError(w, r, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		writeJSON(w, http.StatusOK, tokenResponse)
	}
}

// Revoke revokes the bearer token presented in the Authorization header
func (s *Server) Revoke() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.broker.Revoke(r.Context(), bearerToken(r)); err != nil {
			logValidationFailure(r, err)
			writeError(w, r, err)
			return
		}
		log.Ctx(r.Context()).Info().Msg("bearer token revoked")
		writeJSON(w, http.StatusOK, RevokeResponse{Revoked: true})
	}
}

// callbackRedirect sends the exchange code and state to the agent's redirect URI.
func callbackRedirect(w http.ResponseWriter, r *http.Request, redirectURI, code, state string) error {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return errors.Wrap(err, "[callbackRedirect] invalid redirect URI")
	}

	q := u.Query()
	q.Set("code", code)
	q.Set("state", state)
	u.RawQuery = q.Encode()

	http.Redirect(w, r, u.String(), http.StatusFound)
	return nil
}
