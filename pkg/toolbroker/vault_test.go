package toolbroker

import (
	"bytes"
	"testing"
)

func testMasterKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestNewVaultRejectsShortKey(t *testing.T) {
	if _, err := NewVault(make([]byte, 16)); err == nil {
		t.Error("expected error for a master key shorter than 32 bytes")
	}
}

func TestVaultSealUnsealRoundTrip(t *testing.T) {
	v, err := NewVault(testMasterKey())
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}

	secret := []byte("super-secret-api-key")
	ciphertext, nonce, err := v.Seal("cred-1", secret)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(ciphertext, secret) {
		t.Error("ciphertext should not contain the plaintext secret")
	}

	plaintext, err := v.Unseal("cred-1", ciphertext, nonce)
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}
	if !bytes.Equal(plaintext, secret) {
		t.Errorf("Unseal() = %q, want %q", plaintext, secret)
	}
}

func TestVaultUnsealFailsForWrongCredentialID(t *testing.T) {
	v, err := NewVault(testMasterKey())
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}

	ciphertext, nonce, err := v.Seal("cred-1", []byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := v.Unseal("cred-2", ciphertext, nonce); err == nil {
		t.Error("expected Unseal to fail when the credential id used for key derivation differs")
	}
}

func TestVaultUnsealFailsForTamperedCiphertext(t *testing.T) {
	v, err := NewVault(testMasterKey())
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}

	ciphertext, nonce, err := v.Seal("cred-1", []byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	tampered := append([]byte(nil), ciphertext...)
	tampered[0] ^= 0xFF

	if _, err := v.Unseal("cred-1", tampered, nonce); err == nil {
		t.Error("expected Unseal to fail for tampered ciphertext")
	}
}
