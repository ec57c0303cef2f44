package postgres

import (
	"bytes"
	"errors"
	"testing"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestNewSecretEncryptor_InvalidKeySize(t *testing.T) {
	_, err := NewSecretEncryptor([]byte("short"))
	if !errors.Is(err, ErrInvalidKeySize) {
		t.Fatalf("expected ErrInvalidKeySize, got %v", err)
	}
}

func TestSecretEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewSecretEncryptor(testKey())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	type secrets struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}

	in := secrets{AccessToken: "at-123", RefreshToken: "rt-456"}
	blob, err := enc.Encrypt(in)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if bytes.Contains(blob, []byte("at-123")) {
		t.Error("ciphertext contains plaintext token")
	}

	var out secrets
	if err := enc.Decrypt(blob, &out); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestSecretEncryptor_WrongKey(t *testing.T) {
	enc, _ := NewSecretEncryptor(testKey())

	otherKey := testKey()
	otherKey[0] ^= 0xff
	other, _ := NewSecretEncryptor(otherKey)

	blob, err := enc.Encrypt("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	var out string
	if err := other.Decrypt(blob, &out); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestSecretEncryptor_TruncatedBlob(t *testing.T) {
	enc, _ := NewSecretEncryptor(testKey())

	var out string
	if err := enc.Decrypt([]byte{blobVersion, 0x01}, &out); !errors.Is(err, ErrInvalidBlobSize) {
		t.Fatalf("expected ErrInvalidBlobSize, got %v", err)
	}
}

func TestSecretEncryptor_UnsupportedVersion(t *testing.T) {
	enc, _ := NewSecretEncryptor(testKey())

	blob, err := enc.Encrypt("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	blob[0] = 0x7f

	var out string
	if err := enc.Decrypt(blob, &out); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestDeriveKey(t *testing.T) {
	key1, err := DeriveKey("passphrase-one")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(key1) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(key1))
	}

	// Deterministic for the same passphrase.
	again, _ := DeriveKey("passphrase-one")
	if !bytes.Equal(key1, again) {
		t.Error("derivation must be deterministic")
	}

	key2, _ := DeriveKey("passphrase-two")
	if bytes.Equal(key1, key2) {
		t.Error("different passphrases must derive different keys")
	}

	if _, err := DeriveKey(""); err == nil {
		t.Error("empty passphrase must be rejected")
	}
}
