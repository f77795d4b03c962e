package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
)

const (
	// DefaultTimeout bounds every call to the upstream app.
	DefaultTimeout = 10 * time.Second

	ExchangePath = "/api/gpt-auth/exchange"
	RevokePath   = "/api/gpt-auth/revoke"
)

// ExchangeResult is what the upstream app returns for a confirmed connection.
type ExchangeResult struct {
	Credential string
	UserID     int64
}

// Client is the connector's view of the upstream app.
type Client interface {
	// Exchange trades a one-time confirmation code for the user's credential.
	Exchange(ctx context.Context, code string) (*ExchangeResult, error)

	// Revoke asks the upstream app to invalidate credential.
	Revoke(ctx context.Context, credential string) error
}

// Error is a failed upstream call. StatusCode is 0 when the app could not be
// reached. Message is for logs only and is never shown to the agent.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return "upstream unreachable: " + e.Message
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the call could succeed.
func (e *Error) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// HTTPClient talks to the upstream app's connector API using the shared
// connector API key.
type HTTPClient struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	revokeTries   uint
	revokeBackoff time.Duration
}

var _ Client = (*HTTPClient)(nil)

type HTTPClientOption func(*HTTPClient)

func WithTimeout(timeout time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithRevokeRetry sets how many times a revoke is attempted on transient
// failures and the initial delay between attempts.
func WithRevokeRetry(tries uint, initialInterval time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		c.revokeTries = tries
		c.revokeBackoff = initialInterval
	}
}

func NewHTTPClient(baseURL, apiKey string, options ...HTTPClientOption) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid upstream url")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.Errorf("upstream url scheme must be http or https, got: %q", parsed.Scheme)
	}

	c := &HTTPClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		revokeTries:   3,
		revokeBackoff: 200 * time.Millisecond,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.revokeTries == 0 {
		c.revokeTries = 1
	}
	return c, nil
}

type exchangeRequest struct {
	Code string `json:"code"`
}

type exchangeResponse struct {
	Credential   string          `json:"credential"`
	SanctumToken string          `json:"sanctum_token"`
	UserID       json.Number     `json:"user_id"`
	Data         json.RawMessage `json:"data"`
}

func (c *HTTPClient) Exchange(ctx context.Context, code string) (*ExchangeResult, error) {
	body, err := c.post(ctx, ExchangePath, exchangeRequest{Code: code})
	if err != nil {
		return nil, err
	}

	var payload exchangeResponse
	if err := decodeJSON(body, &payload); err != nil {
		return nil, &Error{StatusCode: http.StatusBadGateway, Message: "invalid exchange response"}
	}
	// Some upstream versions wrap the result in a "data" envelope
	if len(payload.Data) > 0 && string(payload.Data) != "null" {
		var inner exchangeResponse
		if err := decodeJSON(payload.Data, &inner); err != nil {
			return nil, &Error{StatusCode: http.StatusBadGateway, Message: "invalid exchange response envelope"}
		}
		payload = inner
	}

	credential := payload.Credential
	if credential == "" {
		credential = payload.SanctumToken
	}
	userID, err := payload.UserID.Int64()
	if credential == "" || err != nil {
		return nil, &Error{StatusCode: http.StatusBadGateway, Message: "exchange response missing credential or user_id"}
	}

	return &ExchangeResult{Credential: credential, UserID: userID}, nil
}

type revokeRequest struct {
	Token string `json:"token"`
}

func (c *HTTPClient) Revoke(ctx context.Context, credential string) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.revokeBackoff
	expBackoff.Reset()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		_, err := c.post(ctx, RevokePath, revokeRequest{Token: credential})
		if err == nil {
			return struct{}{}, nil
		}
		var upstreamErr *Error
		if errors.As(err, &upstreamErr) && !upstreamErr.Temporary() {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(c.revokeTries),
	)
	return err
}

// post sends a JSON body and returns the response body of a 2xx answer. Any
// other outcome is an *Error.
func (c *HTTPClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal upstream request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create upstream request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: "failed to read response body"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// NewError builds an Error from a failed main app response, keeping its
// "message" field or the start of the raw body.
func NewError(statusCode int, body []byte) *Error {
	return &Error{StatusCode: statusCode, Message: upstreamMessage(body)}
}

func upstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		return payload.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return strings.TrimSpace(string(body))
}
