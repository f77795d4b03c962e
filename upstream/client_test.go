package upstream_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/troioi-vn/meo-gpt-connector/upstream"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *upstream.HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := upstream.NewHTTPClient(srv.URL+"/", "connector-key", upstream.WithRevokeRetry(3, time.Millisecond))
	require.NoError(t, err)
	return client
}

func TestHTTPClient_Exchange(t *testing.T) {
	for name, body := range map[string]string{
		"flat":           `{"credential":"tok-abc","user_id":42}`,
		"data envelope":  `{"data":{"credential":"tok-abc","user_id":42}}`,
		"legacy field":   `{"sanctum_token":"tok-abc","user_id":42}`,
		"string user id": `{"credential":"tok-abc","user_id":"42"}`,
	} {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodPost, r.Method)
				require.Equal(t, upstream.ExchangePath, r.URL.Path)
				require.Equal(t, "Bearer connector-key", r.Header.Get("Authorization"))

				var req map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				require.Equal(t, "upstream-code", req["code"])

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			})

			result, err := client.Exchange(context.Background(), "upstream-code")
			require.NoError(t, err)
			require.Equal(t, &upstream.ExchangeResult{Credential: "tok-abc", UserID: 42}, result)
		})
	}
}

func TestHTTPClient_ExchangeFailures(t *testing.T) {
	for name, tc := range map[string]struct {
		status     int
		body       string
		wantStatus int
	}{
		"rejected code":    {status: http.StatusUnprocessableEntity, body: `{"message":"Invalid code"}`, wantStatus: http.StatusUnprocessableEntity},
		"server error":     {status: http.StatusInternalServerError, body: `oops`, wantStatus: http.StatusInternalServerError},
		"missing fields":   {status: http.StatusOK, body: `{"user_id":42}`, wantStatus: http.StatusBadGateway},
		"not json":         {status: http.StatusOK, body: `<html>`, wantStatus: http.StatusBadGateway},
		"bad user id type": {status: http.StatusOK, body: `{"credential":"x","user_id":"bob"}`, wantStatus: http.StatusBadGateway},
	} {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.Exchange(context.Background(), "upstream-code")
			var upstreamErr *upstream.Error
			require.ErrorAs(t, err, &upstreamErr)
			require.Equal(t, tc.wantStatus, upstreamErr.StatusCode)
		})
	}
}

func TestHTTPClient_ExchangeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client, err := upstream.NewHTTPClient(srv.URL, "connector-key")
	require.NoError(t, err)

	_, err = client.Exchange(context.Background(), "upstream-code")
	var upstreamErr *upstream.Error
	require.ErrorAs(t, err, &upstreamErr)
	require.Zero(t, upstreamErr.StatusCode)
	require.True(t, upstreamErr.Temporary())
}

func TestHTTPClient_RevokeRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, upstream.RevokePath, r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "tok-abc", req["token"])

		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Revoke(context.Background(), "tok-abc"))
	require.EqualValues(t, 3, calls.Load())
}

func TestHTTPClient_RevokeDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.Revoke(context.Background(), "tok-abc")
	var upstreamErr *upstream.Error
	require.ErrorAs(t, err, &upstreamErr)
	require.Equal(t, http.StatusNotFound, upstreamErr.StatusCode)
	require.EqualValues(t, 1, calls.Load())
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := upstream.NewHTTPClient("ftp://example.com", "")
	require.Error(t, err)

	_, err = upstream.NewHTTPClient("://nope", "")
	require.Error(t, err)
}

func TestNewError(t *testing.T) {
	for name, tc := range map[string]struct {
		body    string
		message string
	}{
		"json message": {body: `{"message":"Server Error"}`, message: "Server Error"},
		"plain body":   {body: "  bad gateway\n", message: "bad gateway"},
		"long body":    {body: strings.Repeat("x", 500), message: strings.Repeat("x", 200)},
		"empty":        {body: "", message: ""},
	} {
		t.Run(name, func(t *testing.T) {
			err := upstream.NewError(http.StatusServiceUnavailable, []byte(tc.body))
			require.Equal(t, http.StatusServiceUnavailable, err.StatusCode)
			require.Equal(t, tc.message, err.Message)
			require.True(t, err.Temporary())
		})
	}
}
