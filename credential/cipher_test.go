package credential_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/troioi-vn/meo-gpt-connector/credential"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestCipher(t *testing.T) *credential.Cipher {
	t.Helper()
	c, err := credential.NewCipherFromHex(testKeyHex)
	require.NoError(t, err)
	return c
}

func TestCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	for _, plaintext := range []string{"", "tok-abc", "1|sanctum-token-with-pipe", strings.Repeat("x", 4096), "ünïcødé"} {
		blob, err := c.Encrypt(plaintext)
		require.NoError(t, err)

		got, err := c.Decrypt(blob)
		require.NoError(t, err)
		require.Equal(t, plaintext, got)
	}
}

func TestCipher_EncryptIsRandomised(t *testing.T) {
	c := newTestCipher(t)

	first, err := c.Encrypt("tok-abc")
	require.NoError(t, err)
	second, err := c.Encrypt("tok-abc")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestCipher_OutputIsURLSafe(t *testing.T) {
	c := newTestCipher(t)

	blob, err := c.Encrypt(strings.Repeat("?>~", 100))
	require.NoError(t, err)
	require.NotContains(t, blob, "+")
	require.NotContains(t, blob, "/")

	raw, err := base64.URLEncoding.DecodeString(blob)
	require.NoError(t, err)
	require.Len(t, raw, credential.NonceSize+300+credential.TagSize)
}

func TestCipher_EveryBitFlipFailsAuthentication(t *testing.T) {
	c := newTestCipher(t)

	blob, err := c.Encrypt("tok-abc")
	require.NoError(t, err)
	raw, err := base64.URLEncoding.DecodeString(blob)
	require.NoError(t, err)

	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			tampered := make([]byte, len(raw))
			copy(tampered, raw)
			tampered[i] ^= 1 << bit

			got, err := c.Decrypt(base64.URLEncoding.EncodeToString(tampered))
			require.ErrorIs(t, err, credential.ErrAuthenticationFailure, "byte %d bit %d", i, bit)
			require.Empty(t, got)
		}
	}
}

func TestCipher_EncodedBitFlipFailsAuthentication(t *testing.T) {
	c := newTestCipher(t)

	// 35 raw bytes encode with one '=' pad; the last data character has two
	// unused low bits.
	blob, err := c.Encrypt("tok-abc")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(blob, "=") && !strings.HasSuffix(blob, "=="), blob)

	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	for i := 0; i < len(blob); i++ {
		idx := strings.IndexByte(alphabet, blob[i])
		if idx < 0 {
			continue
		}
		for bit := 0; bit < 6; bit++ {
			tampered := []byte(blob)
			tampered[i] = alphabet[idx^(1<<bit)]

			got, err := c.Decrypt(string(tampered))
			require.ErrorIs(t, err, credential.ErrAuthenticationFailure, "char %d bit %d", i, bit)
			require.Empty(t, got)
		}
	}

	got, err := c.Decrypt(blob)
	require.NoError(t, err)
	require.Equal(t, "tok-abc", got)
}

func TestCipher_DecryptRejectsGarbage(t *testing.T) {
	c := newTestCipher(t)

	t.Run("not base64", func(t *testing.T) {
		_, err := c.Decrypt("!!!not-base64!!!")
		require.ErrorIs(t, err, credential.ErrAuthenticationFailure)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := c.Decrypt(base64.URLEncoding.EncodeToString([]byte("short")))
		require.ErrorIs(t, err, credential.ErrAuthenticationFailure)
	})

	t.Run("wrong key", func(t *testing.T) {
		blob, err := c.Encrypt("tok-abc")
		require.NoError(t, err)

		other, err := credential.NewCipherFromHex(strings.Repeat("ff", credential.KeySize))
		require.NoError(t, err)
		_, err = other.Decrypt(blob)
		require.ErrorIs(t, err, credential.ErrAuthenticationFailure)
	})
}

func TestNewCipher_KeyValidation(t *testing.T) {
	_, err := credential.NewCipherFromHex("not-hex")
	require.Error(t, err)

	_, err = credential.NewCipherFromHex("0011")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must be 32 bytes")
}
