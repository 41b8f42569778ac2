// Package encryption seals and opens the GitHub tokens stored in the
// user directory. Tokens are encrypted with AES-256-GCM and transported
// as base64; the 32-byte key is derived from the configured secret with
// SHA-256.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/streaky/streakd/internal/domain"
)

// Service encrypts and decrypts credential strings.
type Service struct {
	aead cipher.AEAD
}

func New(key string) (*Service, error) {
	sum := sha256.Sum256([]byte(key))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Service{aead: aead}, nil
}

// Encrypt seals plaintext with a random nonce and returns
// base64(nonce || ciphertext).
func (s *Service) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any malformed or tampered input yields
// domain.ErrDecryption; callers do not learn why.
func (s *Service) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", domain.ErrDecryption
	}
	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", domain.ErrDecryption
	}
	plaintext, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", domain.ErrDecryption
	}
	return string(plaintext), nil
}
