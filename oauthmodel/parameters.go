package oauthmodel

import (
	"crypto/subtle"
	"net/url"
	"strings"
)

// AuthorizationParameters holds parameters for the OAuth2 authorization request.
// These are received as query parameters at the /authorize endpoint.
type AuthorizationParameters struct {
	// ClientID identifies the agent requesting authorization.
	// Required: Yes
	// Example: "meo-gpt"
	// Validated against: the single configured OAuth client
	ClientID string

	// ResponseType specifies what the authorization endpoint should return.
	// Required: Yes
	// Example: "code" (only supported value)
	ResponseType ResponseType

	// RedirectURI is where the authorization response will be sent.
	// Required: Yes
	// Example: "https://chat.openai.com/aip/g-123/oauth/callback"
	// Must be an absolute http(s) URL; the code and state are appended to it.
	RedirectURI string

	// State is an opaque value used by the agent to maintain state between
	// request and callback.
	// Required: No (echoed back unchanged, empty if absent)
	// Example: "abc123"
	State string
}

// ParseAuthorizationParameters reads the authorization request from query values.
func ParseAuthorizationParameters(query url.Values) AuthorizationParameters {
	return AuthorizationParameters{
		ClientID:     strings.TrimSpace(query.Get("client_id")),
		ResponseType: ResponseType(strings.TrimSpace(query.Get("response_type"))),
		RedirectURI:  strings.TrimSpace(query.Get("redirect_uri")),
		State:        query.Get("state"),
	}
}

// Validate checks the request against the configured client ID.
func (p *AuthorizationParameters) Validate(clientID string) error {
	if subtle.ConstantTimeCompare([]byte(p.ClientID), []byte(clientID)) != 1 {
		return ErrInvalidClientID
	}

	// Check that the response type is valid
	if p.ResponseType != CodeResponseType {
		return ErrInvalidResponseType
	}

	if !redirectURIValid(p.RedirectURI) {
		return ErrInvalidRedirectUri
	}
	return nil
}

func redirectURIValid(redirectURI string) bool {
	if redirectURI == "" {
		return false
	}
	u, err := url.Parse(redirectURI)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
