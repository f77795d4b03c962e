package config

const (
	jwtSecretVar        = "JWT_SECRET"
	encryptionKeyVar    = "ENCRYPTION_KEY"
	hmacSharedSecretVar = "HMAC_SHARED_SECRET"
	rateLimitVar        = "RATE_LIMIT_PER_MINUTE"
)

type SecurityConfig interface {
	GetJWTSecret() string
	GetEncryptionKey() string
	GetHMACSharedSecret() string
	GetRateLimitPerMinute() int
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetJWTSecret() string {
	return GetEnv(jwtSecretVar, "")
}

// GetEncryptionKey returns the AES-256 key as 64 hex characters.
func (Security) GetEncryptionKey() string {
	return GetEnv(encryptionKeyVar, "")
}

func (Security) GetHMACSharedSecret() string {
	return GetEnv(hmacSharedSecretVar, "")
}

func (Security) GetRateLimitPerMinute() int {
	return GetEnvInt(rateLimitVar, 60)
}
