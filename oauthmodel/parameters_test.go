package oauthmodel_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/troioi-vn/meo-gpt-connector/oauthmodel"
)

func TestAuthorizationParameters_Validate(t *testing.T) {
	valid := url.Values{
		"client_id":     {"meo-gpt"},
		"response_type": {"code"},
		"redirect_uri":  {"https://agent/callback"},
		"state":         {"abc123"},
	}

	params := oauthmodel.ParseAuthorizationParameters(valid)
	require.NoError(t, params.Validate("meo-gpt"))
	require.Equal(t, "abc123", params.State)

	for name, tc := range map[string]struct {
		key, value string
		want       error
	}{
		"wrong client":      {"client_id", "other", oauthmodel.ErrInvalidClientID},
		"empty client":      {"client_id", "", oauthmodel.ErrInvalidClientID},
		"token response":    {"response_type", "token", oauthmodel.ErrInvalidResponseType},
		"missing redirect":  {"redirect_uri", "", oauthmodel.ErrInvalidRedirectUri},
		"relative redirect": {"redirect_uri", "/callback", oauthmodel.ErrInvalidRedirectUri},
		"javascript scheme": {"redirect_uri", "javascript:alert(1)", oauthmodel.ErrInvalidRedirectUri},
	} {
		t.Run(name, func(t *testing.T) {
			query := url.Values{}
			for k, v := range valid {
				query[k] = v
			}
			query.Set(tc.key, tc.value)

			params := oauthmodel.ParseAuthorizationParameters(query)
			require.ErrorIs(t, params.Validate("meo-gpt"), tc.want)
		})
	}
}

func TestParseTokenRequest(t *testing.T) {
	form := url.Values{
		"client_id":     {"meo-gpt"},
		"client_secret": {"secret"},
		"grant_type":    {"authorization_code"},
		"code":          {"code-1"},
	}

	r := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, r.ParseForm())

	req := oauthmodel.ParseTokenRequest(r)
	require.Equal(t, oauthmodel.TokenRequest{
		ClientID:     "meo-gpt",
		ClientSecret: "secret",
		GrantType:    oauthmodel.AuthorizationCodeGrant,
		Code:         "code-1",
	}, req)

	t.Run("basic auth", func(t *testing.T) {
		form := url.Values{"grant_type": {"authorization_code"}, "code": {"code-1"}}
		r := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.SetBasicAuth("meo-gpt", "secret")
		require.NoError(t, r.ParseForm())

		req := oauthmodel.ParseTokenRequest(r)
		require.Equal(t, "meo-gpt", req.ClientID)
		require.Equal(t, "secret", req.ClientSecret)
	})
}
