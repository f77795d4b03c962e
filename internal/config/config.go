package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type Config interface {
	EnvConfig
	OAuthConfig
	SecurityConfig
	UpstreamConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetPublicURL() string
}

type mainConfig struct {
	EnvVars
	OAuth
	Security
	Upstream
	Store
}

func New() Config {
	return mainConfig{}
}

// Validate reports every missing or malformed setting at once so startup
// fails with a complete list.
func Validate(cfg Config) error {
	var problems []string

	if cfg.GetMainAppURL() == "" {
		problems = append(problems, mainAppURLVar+" is required")
	} else if !isHTTPURL(cfg.GetMainAppURL()) {
		problems = append(problems, mainAppURLVar+" must start with http:// or https://")
	}
	if !isHTTPURL(cfg.GetPublicURL()) {
		problems = append(problems, publicURLVar+" must start with http:// or https://")
	}
	if cfg.GetConnectorAPIKey() == "" {
		problems = append(problems, connectorAPIKeyVar+" is required")
	}
	if cfg.GetClientID() == "" {
		problems = append(problems, clientIDVar+" is required")
	}
	if cfg.GetClientSecret() == "" && cfg.GetClientSecretHash() == "" {
		problems = append(problems, clientSecretVar+" or "+clientSecretHashVar+" is required")
	}
	if cfg.GetJWTSecret() == "" {
		problems = append(problems, jwtSecretVar+" is required")
	}
	if err := validateEncryptionKey(cfg.GetEncryptionKey()); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.GetHMACSharedSecret() == "" {
		problems = append(problems, hmacSharedSecretVar+" is required")
	}
	if cfg.GetRateLimitPerMinute() <= 0 {
		problems = append(problems, rateLimitVar+" must be a positive integer")
	}
	if cfg.GetUpstreamTimeout() <= 0 {
		problems = append(problems, upstreamTimeoutVar+" must be a positive duration")
	}
	switch cfg.GetStoreBackend() {
	case StoreBackendRedis:
		if cfg.GetRedisURL() == "" {
			problems = append(problems, redisURLVar+" is required for the redis store")
		}
	case StoreBackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("%s must be %q or %q", storeBackendVar, StoreBackendRedis, StoreBackendMemory))
	}

	if len(problems) > 0 {
		return errors.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func validateEncryptionKey(key string) error {
	if key == "" {
		return errors.New(encryptionKeyVar + " is required")
	}
	raw, err := hex.DecodeString(key)
	if err != nil {
		return errors.New(encryptionKeyVar + " must be a valid hex string")
	}
	if len(raw) != 32 {
		return errors.New(encryptionKeyVar + " must decode to exactly 32 bytes (64 hex chars)")
	}
	return nil
}

func isHTTPURL(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}
