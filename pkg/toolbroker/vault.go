package toolbroker

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Vault seals and unseals credential secrets with AES-256-GCM, keyed off a
// single master key via HKDF-SHA256 per-credential derivation so no two
// credentials share a keystream even if master key material is reused
// elsewhere.
type Vault struct {
	masterKey []byte
}

// NewVault constructs a Vault from a 32-byte master key (config.VaultMasterKey).
func NewVault(masterKey []byte) (*Vault, error) {
	if len(masterKey) < 32 {
		return nil, fmt.Errorf("vault master key must be at least 32 bytes")
	}
	return &Vault{masterKey: masterKey}, nil
}

// Seal encrypts secret under a key derived for credentialID, returning the
// ciphertext and nonce for the credentials.secret_ciphertext/secret_nonce
// columns.
func (v *Vault) Seal(credentialID string, secret []byte) (ciphertext, nonce []byte, err error) {
	gcm, err := v.cipherFor(credentialID)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}
	ciphertext = gcm.Seal(nil, nonce, secret, nil)
	return ciphertext, nonce, nil
}

// Unseal decrypts a stored secret for credentialID.
func (v *Vault) Unseal(credentialID string, ciphertext, nonce []byte) ([]byte, error) {
	gcm, err := v.cipherFor(credentialID)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("unsealing credential: %w", err)
	}
	return plaintext, nil
}

func (v *Vault) cipherFor(credentialID string) (cipher.AEAD, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, v.masterKey, nil, []byte("openintent-credential:"+credentialID))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("deriving credential key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("constructing cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("constructing gcm: %w", err)
	}
	return gcm, nil
}
