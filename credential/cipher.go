package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes (96 bits).
	NonceSize = 12
	// TagSize is the GCM authentication tag length in bytes (128 bits).
	TagSize = 16
)

// ErrAuthenticationFailure is returned by Decrypt when the blob cannot be
// authenticated. No plaintext is ever returned alongside it.
var ErrAuthenticationFailure = errors.New("credential authentication failed")

// Cipher encrypts upstream credentials for embedding in bearer tokens.
// The output is URL-safe base64 of nonce || ciphertext || tag.
type Cipher struct {
	aead   cipher.AEAD
	random io.Reader
}

// NewCipher creates an AES-256-GCM cipher from a 32 byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &Cipher{aead: aead, random: rand.Reader}, nil
}

// NewCipherFromHex creates a cipher from a 64 character hex key.
func NewCipherFromHex(hexKey string) (*Cipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key must be a valid hex string: %w", err)
	}
	return NewCipher(key)
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Any decoding problem or altered
// byte yields ErrAuthenticationFailure.
func (c *Cipher) Decrypt(blob string) (string, error) {
	raw, err := base64.URLEncoding.Strict().DecodeString(blob)
	if err != nil {
		return "", ErrAuthenticationFailure
	}
	if len(raw) < NonceSize+TagSize {
		return "", ErrAuthenticationFailure
	}
	nonce, sealed := raw[:NonceSize], raw[NonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrAuthenticationFailure
	}
	return string(plaintext), nil
}
