package config

import "time"

const (
	clientIDVar         = "OAUTH_CLIENT_ID"
	clientSecretVar     = "OAUTH_CLIENT_SECRET"
	clientSecretHashVar = "OAUTH_CLIENT_SECRET_HASH"
)

type OAuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetClientSecretHash() string
	GetSessionTTL() time.Duration
	GetCodeTTL() time.Duration
	GetTokenLifetime() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetClientID() string {
	return GetEnv(clientIDVar, "meo-gpt")
}

func (OAuth) GetClientSecret() string {
	return GetEnv(clientSecretVar, "")
}

// GetClientSecretHash returns a bcrypt hash of the client secret. When set it
// is used instead of OAUTH_CLIENT_SECRET.
func (OAuth) GetClientSecretHash() string {
	return GetEnv(clientSecretHashVar, "")
}

func (OAuth) GetSessionTTL() time.Duration {
	return 600 * time.Second
}

func (OAuth) GetCodeTTL() time.Duration {
	return 300 * time.Second
}

func (OAuth) GetTokenLifetime() time.Duration {
	return 365 * 24 * time.Hour
}
