package config

import (
	"strings"
	"time"
)

const (
	mainAppURLVar      = "MAIN_APP_URL"
	connectorAPIKeyVar = "CONNECTOR_API_KEY"
	upstreamTimeoutVar = "UPSTREAM_TIMEOUT"
)

type UpstreamConfig interface {
	GetMainAppURL() string
	GetConnectorAPIKey() string
	GetUpstreamTimeout() time.Duration
	GetConfirmURL() string
}

type Upstream struct{}

var _ UpstreamConfig = Upstream{}

// GetMainAppURL returns the upstream app's base URL without a trailing slash.
func (Upstream) GetMainAppURL() string {
	return strings.TrimRight(GetEnv(mainAppURLVar, ""), "/")
}

func (Upstream) GetConnectorAPIKey() string {
	return GetEnv(connectorAPIKeyVar, "")
}

func (Upstream) GetUpstreamTimeout() time.Duration {
	return GetEnvDuration(upstreamTimeoutVar, 10*time.Second)
}

// GetConfirmURL is the upstream page where users approve the connection.
func (u Upstream) GetConfirmURL() string {
	return u.GetMainAppURL() + "/gpt-connect"
}
