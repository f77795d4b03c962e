package upstreamfake

import (
	"context"
	"sync"

	"github.com/troioi-vn/meo-gpt-connector/upstream"
)

var _ upstream.Client = (*FakeClient)(nil)

// FakeClient is an in-memory upstream app. Codes registered with AddCode can
// be exchanged once.
type FakeClient struct {
	codes       map[string]upstream.ExchangeResult
	revoked     []string
	exchangeErr error
	revokeErr   error
	lock        sync.Mutex
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		codes: make(map[string]upstream.ExchangeResult),
	}
}

// AddCode registers a confirmation code that exchanges to credential/userID.
func (f *FakeClient) AddCode(code, credential string, userID int64) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.codes[code] = upstream.ExchangeResult{Credential: credential, UserID: userID}
}

// FailExchange makes every Exchange return err.
func (f *FakeClient) FailExchange(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.exchangeErr = err
}

// FailRevoke makes every Revoke return err.
func (f *FakeClient) FailRevoke(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.revokeErr = err
}

// Revoked returns the credentials passed to Revoke, in order.
func (f *FakeClient) Revoked() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.revoked...)
}

func (f *FakeClient) Exchange(_ context.Context, code string) (*upstream.ExchangeResult, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	result, ok := f.codes[code]
	if !ok {
		return nil, &upstream.Error{StatusCode: 422, Message: "invalid code"}
	}
	delete(f.codes, code)
	return &result, nil
}

func (f *FakeClient) Revoke(_ context.Context, credential string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.revoked = append(f.revoked, credential)
	return f.revokeErr
}
