// Package crypto encrypts OAuth tokens before they reach the credential store.
//
// Tokens are sealed with AES-256-GCM using a key derived from
// CONFIG_ENCRYPTION_KEY through PBKDF2-SHA256. Every ciphertext is bound to
// the row it belongs to through GCM additional data, so a token copied from
// one credential row into another fails to decrypt.
//
// Stored format:
//
//	v1:<base64(nonce || ciphertext || tag)>
//
// Values without the version prefix are treated as plaintext written before
// encryption was enabled and are returned unchanged by Decrypt.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"crm-connect/internal/common/errors"
)

const (
	versionPrefix    = "v1:"
	kdfSalt          = "crm-connect-token-salt"
	kdfIterations    = 10000
	derivedKeyLength = 32
)

// TokenCipher seals and opens token strings
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher derives an AES-256 key from key and prepares a GCM instance
func NewTokenCipher(key string) (*TokenCipher, error) {
	if key == "" {
		return nil, errors.ValidationError("encryption key cannot be empty")
	}

	derivedKey := pbkdf2.Key([]byte(key), []byte(kdfSalt), kdfIterations, derivedKeyLength, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, errors.InternalError("failed to create cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.InternalError("failed to create GCM", err)
	}

	return &TokenCipher{aead: aead}, nil
}

// Encrypt seals plaintext bound to binding (for example the owner key and
// provider of the row). Empty input stays empty so "no refresh token" is
// still visible to the store.
func (c *TokenCipher) Encrypt(plaintext, binding string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.InternalError("failed to create nonce", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), []byte(binding))
	return versionPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt with the same binding
func (c *TokenCipher) Decrypt(stored, binding string) (string, error) {
	if stored == "" {
		return "", nil
	}
	if !strings.HasPrefix(stored, versionPrefix) {
		return stored, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, versionPrefix))
	if err != nil {
		return "", errors.InternalError("failed to decode ciphertext", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.ValidationError("ciphertext too short")
	}

	plaintext, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(binding))
	if err != nil {
		return "", errors.InternalError("failed to decrypt", err)
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether a stored value carries the cipher prefix
func IsEncrypted(stored string) bool {
	return strings.HasPrefix(stored, versionPrefix)
}
