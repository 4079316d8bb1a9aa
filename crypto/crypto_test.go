package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewAESEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewAESEncryptor: %v", err)
	}
	plain := "ya29.refresh-token-value"
	ct, err := EncryptString(enc, plain)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if ct == plain {
		t.Fatalf("ciphertext equals plaintext")
	}
	got, err := DecryptString(enc, ct)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if got != plain {
		t.Errorf("round trip = %q, want %q", got, plain)
	}
}

func TestEncryptNondeterministic(t *testing.T) {
	enc, _ := NewAESEncryptor(testKey(t))
	a, _ := EncryptString(enc, "same input")
	b, _ := EncryptString(enc, "same input")
	if a == b {
		t.Errorf("two encryptions produced identical ciphertext; nonce reuse?")
	}
}

func TestDecryptTamperedFails(t *testing.T) {
	enc, _ := NewAESEncryptor(testKey(t))
	ct, _ := EncryptString(enc, "secret")
	tampered := strings.Replace(ct, ct[:2], "zz", 1)
	if _, err := DecryptString(enc, tampered); err == nil {
		t.Errorf("expected error decrypting tampered ciphertext")
	}
}

func TestNewAESEncryptorBadKey(t *testing.T) {
	if _, err := NewAESEncryptor(""); err == nil {
		t.Errorf("expected error for empty key")
	}
	if _, err := NewAESEncryptor("not-base64!!!"); err == nil {
		t.Errorf("expected error for invalid base64")
	}
	short := base64.StdEncoding.EncodeToString([]byte("short"))
	if _, err := NewAESEncryptor(short); err == nil {
		t.Errorf("expected error for short key")
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	enc1, _ := NewAESEncryptor(testKey(t))
	enc2, _ := NewAESEncryptor(testKey(t))
	ct, _ := EncryptString(enc1, "secret")
	if _, err := DecryptString(enc2, ct); err == nil {
		t.Errorf("expected error decrypting with wrong key")
	}
}
