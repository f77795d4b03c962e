package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/troioi-vn/meo-gpt-connector/auth"
	"golang.org/x/crypto/bcrypt"
)

func TestClientCredentials_Verify(t *testing.T) {
	client, err := auth.NewClientCredentials("meo-gpt", "s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotContains(t, string(client.SecretHash), "s3cret")

	require.True(t, client.Verify("meo-gpt", "s3cret"))
	require.False(t, client.Verify("meo-gpt", "s3cret "))
	require.False(t, client.Verify("meo-gpt", ""))
	require.False(t, client.Verify("meo", "s3cret"))
	require.False(t, client.Verify("", ""))

	_, err = auth.NewClientCredentials("meo-gpt", "", bcrypt.MinCost)
	require.Error(t, err)
}

func TestSessionSignature(t *testing.T) {
	secret := []byte("test-hmac-secret")

	sig := auth.SessionSignature(secret, "session-1")
	require.Len(t, sig, 64)
	require.Equal(t, sig, auth.SessionSignature(secret, "session-1"))
	require.NotEqual(t, sig, auth.SessionSignature(secret, "session-2"))
	require.NotEqual(t, sig, auth.SessionSignature([]byte("other"), "session-1"))

	require.True(t, auth.VerifySessionSignature(secret, "session-1", sig))
	require.False(t, auth.VerifySessionSignature(secret, "session-2", sig))
	require.False(t, auth.VerifySessionSignature(secret, "session-1", "zz"))
}
