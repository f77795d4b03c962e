package oauthmodel

import (
	"net/http"
	"strings"
)

// TokenRequest holds parameters for the OAuth2 token request.
// This represents the form-encoded body sent to the /token endpoint.
type TokenRequest struct {
	// ClientID identifies the OAuth2 client making the request.
	// Example: "meo-gpt"
	ClientID string

	// ClientSecret is the secret credential of the configured client.
	// Security: Never log or expose this value
	ClientSecret string

	// GrantType must be "authorization_code".
	GrantType GrantType

	// Code is the authorization code handed to the agent by /callback.
	// Usage: Exchanged once for a bearer token, then becomes invalid
	Code string
}

// ParseTokenRequest reads a token request from a parsed form. Client
// credentials sent with HTTP Basic authentication take precedence over form
// fields.
func ParseTokenRequest(r *http.Request) TokenRequest {
	req := TokenRequest{
		ClientID:     strings.TrimSpace(r.PostForm.Get("client_id")),
		ClientSecret: r.PostForm.Get("client_secret"),
		GrantType:    GrantType(strings.TrimSpace(r.PostForm.Get("grant_type"))),
		Code:         strings.TrimSpace(r.PostForm.Get("code")),
	}
	if id, secret, ok := r.BasicAuth(); ok {
		req.ClientID = id
		req.ClientSecret = secret
	}
	return req
}

// TokenResponse represents the response from the /token endpoint.
type TokenResponse struct {
	// AccessToken is the signed bearer token.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// TokenType is always "bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token (one year).
	ExpiresIn int `json:"expires_in"`
}
