package upstreamfake

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/troioi-vn/meo-gpt-connector/upstream"
)

// FakeMainApp is an http.Handler standing in for the main app. It serves the
// connector API (exchange and revoke, guarded by the connector API key) and
// echoes every other /api/ request so proxied calls can be inspected.
type FakeMainApp struct {
	apiKey    string
	codes     map[string]upstream.ExchangeResult
	revoked   []string
	apiStatus int
	lock      sync.Mutex
}

// EchoResponse is the body of every non connector /api/ answer.
type EchoResponse struct {
	Method        string `json:"method"`
	Path          string `json:"path"`
	Query         string `json:"query"`
	Authorization string `json:"authorization"`
	RequestID     string `json:"request_id"`
}

func NewFakeMainApp(apiKey string) *FakeMainApp {
	return &FakeMainApp{
		apiKey:    apiKey,
		codes:     make(map[string]upstream.ExchangeResult),
		apiStatus: http.StatusOK,
	}
}

// AddCode registers a confirmation code that exchanges to credential/userID once.
func (f *FakeMainApp) AddCode(code, credential string, userID int64) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.codes[code] = upstream.ExchangeResult{Credential: credential, UserID: userID}
}

// Revoked returns the credentials the connector asked to revoke.
func (f *FakeMainApp) Revoked() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.revoked...)
}

// SetAPIStatus makes echoed /api/ requests answer with status.
func (f *FakeMainApp) SetAPIStatus(status int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.apiStatus = status
}

func (f *FakeMainApp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case upstream.ExchangePath:
		f.exchange(w, r)
	case upstream.RevokePath:
		f.revoke(w, r)
	default:
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
			return
		}
		f.echo(w, r)
	}
}

func (f *FakeMainApp) exchange(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "invalid body"})
		return
	}

	f.lock.Lock()
	result, ok := f.codes[req.Code]
	delete(f.codes, req.Code)
	f.lock.Unlock()

	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "The code is invalid or expired."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"credential": result.Credential, "user_id": result.UserID},
	})
}

func (f *FakeMainApp) revoke(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "invalid body"})
		return
	}

	f.lock.Lock()
	f.revoked = append(f.revoked, req.Token)
	f.lock.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

func (f *FakeMainApp) echo(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	status := f.apiStatus
	f.lock.Unlock()

	writeJSON(w, status, EchoResponse{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		RequestID:     r.Header.Get("X-Request-ID"),
	})
}

func (f *FakeMainApp) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+f.apiKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
