package telemetry_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/troioi-vn/meo-gpt-connector/internal/telemetry"
)

func scrape(t *testing.T, m *telemetry.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics_Counters(t *testing.T) {
	m := telemetry.NewMetrics()

	m.TokenValidationFailed("revoked")
	m.TokenValidationFailed("revoked")
	m.TokenValidationFailed("expired")
	m.RateLimited("ip")
	m.BrokerOperation("token", "success")
	m.UpstreamRevokeFailed()
	m.ObserveRequest("/token", http.StatusBadRequest, 0.01)

	body := scrape(t, m)
	require.Contains(t, body, `meo_connector_token_validation_failures_total{cause="revoked"} 2`)
	require.Contains(t, body, `meo_connector_token_validation_failures_total{cause="expired"} 1`)
	require.Contains(t, body, `meo_connector_rate_limited_total{scope="ip"} 1`)
	require.Contains(t, body, `meo_connector_broker_operations_total{operation="token",outcome="success"} 1`)
	require.Contains(t, body, `meo_connector_upstream_revoke_failures_total 1`)
	require.Contains(t, body, `meo_connector_http_requests_total{code="4xx",route="/token"} 1`)
}

func TestMetrics_RegistryIsPrivate(t *testing.T) {
	first := telemetry.NewMetrics()
	second := telemetry.NewMetrics()
	first.RateLimited("user")

	require.Contains(t, scrape(t, first), `meo_connector_rate_limited_total{scope="user"} 1`)
	require.NotContains(t, scrape(t, second), `meo_connector_rate_limited_total{scope="user"}`)
}
