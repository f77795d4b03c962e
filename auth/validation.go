package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// ClientCredentials is the single OAuth client the connector serves. The
// secret is only kept as a bcrypt hash.
type ClientCredentials struct {
	ClientID   string
	SecretHash []byte
}

// NewClientCredentials hashes a plaintext client secret.
func NewClientCredentials(clientID, secret string, cost int) (ClientCredentials, error) {
	if clientID == "" || secret == "" {
		return ClientCredentials{}, errors.New("client id and secret are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return ClientCredentials{}, errors.Wrap(err, "failed to hash client secret")
	}
	return ClientCredentials{ClientID: clientID, SecretHash: hash}, nil
}

// Verify compares both values without leaking timing. The bcrypt comparison
// always runs so a wrong client_id costs the same as a wrong secret.
func (c ClientCredentials) Verify(clientID, secret string) bool {
	idMatch := subtle.ConstantTimeCompare([]byte(clientID), []byte(c.ClientID)) == 1
	secretMatch := bcrypt.CompareHashAndPassword(c.SecretHash, []byte(secret)) == nil
	return idMatch && secretMatch
}

// SessionSignature is the hex HMAC-SHA256 of sessionID under the secret shared
// with the upstream app.
func SessionSignature(secret []byte, sessionID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySessionSignature checks a signature produced by SessionSignature.
func VerifySessionSignature(secret []byte, sessionID, signature string) bool {
	expected, err := hex.DecodeString(SessionSignature(secret, sessionID))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}
