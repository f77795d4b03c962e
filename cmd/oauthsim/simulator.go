package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/troioi-vn/meo-gpt-connector/auth"
	"golang.org/x/oauth2"
)

// Simulator plays the agent (and, for the confirm step, the main app) against
// a running connector.
type Simulator struct {
	connectorURL string
	hmacSecret   []byte
	oauth        *oauth2.Config

	// browser never follows redirects so each hop can be inspected.
	browser *http.Client
}

// SimulatorConfig holds what the GPT action configuration would hold.
type SimulatorConfig struct {
	ConnectorURL string
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// HMACSecret, when set, is used to check the session signature the way
	// the main app does before it confirms.
	HMACSecret string
}

// Confirmation is what the main app receives on its confirm page.
type Confirmation struct {
	SessionID        string
	SessionSignature string
	ConfirmURL       string
}

func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	base := strings.TrimRight(cfg.ConnectorURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, errors.Wrap(err, "invalid connector url")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("client id is required")
	}

	return &Simulator{
		connectorURL: base,
		hmacSecret:   []byte(cfg.HMACSecret),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth/authorize",
				TokenURL:  base + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		browser: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Authorize starts the flow and returns where the connector sent the browser.
func (s *Simulator) Authorize(ctx context.Context, state string) (*Confirmation, error) {
	location, err := s.redirect(ctx, s.oauth.AuthCodeURL(state))
	if err != nil {
		return nil, errors.Wrap(err, "authorize")
	}

	confirmation := &Confirmation{
		SessionID:        location.Query().Get("session_id"),
		SessionSignature: location.Query().Get("session_sig"),
		ConfirmURL:       location.String(),
	}
	if confirmation.SessionID == "" {
		return nil, errors.Errorf("authorize: redirect %q carries no session_id", location)
	}
	if len(s.hmacSecret) > 0 && !auth.VerifySessionSignature(s.hmacSecret, confirmation.SessionID, confirmation.SessionSignature) {
		return nil, errors.New("authorize: session signature does not match the shared secret")
	}
	return confirmation, nil
}

// Confirm returns to the connector the way the main app does after the user
// approves, and returns the exchange code and state handed to the agent.
func (s *Simulator) Confirm(ctx context.Context, sessionID, upstreamCode string) (code, state string, err error) {
	callbackURL := s.connectorURL + "/oauth/callback?" + url.Values{
		"session_id": {sessionID},
		"code":       {upstreamCode},
	}.Encode()

	location, err := s.redirect(ctx, callbackURL)
	if err != nil {
		return "", "", errors.Wrap(err, "callback")
	}
	code = location.Query().Get("code")
	if code == "" {
		return "", "", errors.Errorf("callback: redirect %q carries no code", location)
	}
	return code, location.Query().Get("state"), nil
}

// Exchange redeems the exchange code at the token endpoint.
func (s *Simulator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "token")
	}
	return tok, nil
}

// Call sends a request through the connector's pass-through API and returns
// the status and body.
func (s *Simulator) Call(ctx context.Context, accessToken, method, path string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.connectorURL+"/api/"+strings.TrimLeft(path, "/"), nil)
	if err != nil {
		return 0, "", errors.Wrap(err, "call")
	}
	return s.send(ctx, accessToken, req)
}

// Revoke revokes the bearer token.
func (s *Simulator) Revoke(ctx context.Context, accessToken string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.connectorURL+"/oauth/revoke", nil)
	if err != nil {
		return 0, "", errors.Wrap(err, "revoke")
	}
	return s.send(ctx, accessToken, req)
}

func (s *Simulator) send(ctx context.Context, accessToken string, req *http.Request) (int, string, error) {
	client := s.oauth.Client(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", errors.Wrap(err, "read response")
	}
	return resp.StatusCode, string(body), nil
}

// redirect performs a GET and returns the Location of the expected 302.
func (s *Simulator) redirect(ctx context.Context, target string) (*url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.browser.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusFound {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("expected redirect, got %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.Location()
}
