package oauthmodel

// ResponseType represents the OAuth 2.0 response type requested at /authorize.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow, the only flow
	// the connector supports.
	// Example: /authorize?response_type=code&client_id=meo-gpt&...
	CodeResponseType ResponseType = "code"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for a bearer token.
	// Token request includes: client_id, client_secret, code
	// Returns: access_token (no refresh_token, no id_token)
	AuthorizationCodeGrant GrantType = "authorization_code"
)

// BearerTokenType is the token_type of every issued access token.
const BearerTokenType = "bearer"
