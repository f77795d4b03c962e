package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/troioi-vn/meo-gpt-connector/server"
	"github.com/troioi-vn/meo-gpt-connector/upstream/upstreamfake"
	"golang.org/x/oauth2"
)

// agentConfig is how a GPT action is configured against the connector.
func (f *testFixture) agentConfig(authStyle oauth2.AuthStyle) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		RedirectURL:  testRedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.connector.URL + server.RouteOAuthPrefix + server.RouteAuthorize,
			TokenURL:  f.connector.URL + server.RouteOAuthPrefix + server.RouteToken,
			AuthStyle: authStyle,
		},
	}
}

// confirm plays the browser: it follows the authorize redirect to the main app,
// where the user approves, and returns to the connector's callback.
func (f *testFixture) confirm(t *testing.T, authURL string) *url.URL {
	t.Helper()

	resp, err := f.client.Get(authURL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	confirmURL, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	sessionID := confirmURL.Query().Get("session_id")

	callback := f.connector.URL + server.RouteOAuthPrefix + server.RouteCallback + "?" +
		url.Values{"session_id": {sessionID}, "code": {testUpstreamCode}}.Encode()
	resp, err = f.client.Get(callback)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	agentRedirect, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return agentRedirect
}

func TestOAuth2Flow(t *testing.T) {
	for name, style := range map[string]oauth2.AuthStyle{
		"credentials in body":   oauth2.AuthStyleInParams,
		"credentials in header": oauth2.AuthStyleInHeader,
	} {
		t.Run(name, func(t *testing.T) {
			f := setupTestFixture(t)
			conf := f.agentConfig(style)
			ctx := context.Background()

			agentRedirect := f.confirm(t, conf.AuthCodeURL(testState))
			require.Equal(t, testState, agentRedirect.Query().Get("state"))

			tok, err := conf.Exchange(ctx, agentRedirect.Query().Get("code"))
			require.NoError(t, err)
			require.Equal(t, "bearer", tok.TokenType)
			require.True(t, tok.Valid())

			// The agent calls the pass-through API with its bearer token; the
			// main app sees the user's own credential instead
			resp, err := conf.Client(ctx, tok).Get(f.connector.URL + "/api/pets")
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var echo upstreamfake.EchoResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&echo))
			require.Equal(t, "Bearer "+testCredential, echo.Authorization)

			// Replaying the exchange code fails
			_, err = conf.Exchange(ctx, agentRedirect.Query().Get("code"))
			var retrieveErr *oauth2.RetrieveError
			require.ErrorAs(t, err, &retrieveErr)
			require.Equal(t, http.StatusBadRequest, retrieveErr.Response.StatusCode)
		})
	}
}

func TestOAuth2Flow_WrongClientSecret(t *testing.T) {
	f := setupTestFixture(t)
	conf := f.agentConfig(oauth2.AuthStyleInParams)
	conf.ClientSecret = "wrong"

	agentRedirect := f.confirm(t, conf.AuthCodeURL(testState))

	_, err := conf.Exchange(context.Background(), agentRedirect.Query().Get("code"))
	var retrieveErr *oauth2.RetrieveError
	require.ErrorAs(t, err, &retrieveErr)
	require.Equal(t, http.StatusUnauthorized, retrieveErr.Response.StatusCode)
	require.Equal(t, "INVALID_CLIENT", retrieveErr.ErrorCode)
}
