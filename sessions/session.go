package sessions

import "time"

// Lifetimes of the two single-use records of the authorization handshake.
const (
	AuthorizationTTL = 600 * time.Second
	ExchangeCodeTTL  = 300 * time.Second
)

// AuthorizationSession holds the agent's authorize request while the user
// confirms the connection in the upstream app. Keyed by session ID.
type AuthorizationSession struct {
	SessionID   string `json:"-"`
	State       string `json:"state"`
	RedirectURI string `json:"redirect_uri"`
}

// ExchangeCode carries the upstream credential from the callback to the token
// request. Keyed by the code handed to the agent.
type ExchangeCode struct {
	Code       string `json:"-"`
	Credential string `json:"credential"`
	UserID     int64  `json:"user_id"`
}
