package encryption_test

import (
	"errors"
	"testing"

	"github.com/streaky/streakd/internal/domain"
	"github.com/streaky/streakd/internal/encryption"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := encryption.New("test-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sealed, err := svc.Encrypt("ghp_secret_token_12345")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if sealed == "ghp_secret_token_12345" {
		t.Fatal("ciphertext must not equal plaintext")
	}

	opened, err := svc.Decrypt(sealed)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if opened != "ghp_secret_token_12345" {
		t.Fatalf("round trip mismatch: got %q", opened)
	}
}

func TestEncryptProducesDistinctCiphertexts(t *testing.T) {
	svc, _ := encryption.New("test-key")

	a, _ := svc.Encrypt("same input")
	b, _ := svc.Encrypt("same input")
	if a == b {
		t.Fatal("expected random nonce to produce distinct ciphertexts")
	}
}

func TestDecryptFailures(t *testing.T) {
	svc, _ := encryption.New("test-key")
	other, _ := encryption.New("different-key")
	sealed, _ := other.Encrypt("secret")

	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"too short", "YWJj"},
		{"wrong key", sealed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Decrypt(tc.input)
			if !errors.Is(err, domain.ErrDecryption) {
				t.Fatalf("expected ErrDecryption, got %v", err)
			}
		})
	}
}
