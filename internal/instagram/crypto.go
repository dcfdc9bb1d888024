package instagram

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
)

// TokenCipher encrypts stored Instagram access tokens at rest with
// AES-256-GCM. The key is derived from a configured passphrase.
type TokenCipher struct {
	aead cipher.AEAD
}

func NewTokenCipher(passphrase string) (*TokenCipher, error) {
	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("init token cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init token cipher: %w", err)
	}
	return &TokenCipher{aead: aead}, nil
}

// Encrypt seals a token; the nonce is prepended to the ciphertext.
func (c *TokenCipher) Encrypt(plaintext string) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("encrypt token: %w", err)
	}
	return c.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Decrypt opens a sealed token.
func (c *TokenCipher) Decrypt(sealed []byte) (string, error) {
	if len(sealed) < c.aead.NonceSize() {
		return "", fmt.Errorf("decrypt token: ciphertext too short")
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt token: %w", err)
	}
	return string(plaintext), nil
}
