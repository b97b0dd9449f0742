package cryptoutils

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/ruteri/driving-tests-backend/interfaces"
)

// Vault encrypts credentials with RSA-OAEP (SHA-256) under the key store's public key
// and recovers them with the private key. Ciphertexts are lowercase hex.
//
// Encryption is randomized, so the same credential never encrypts to the same
// ciphertext twice; equality is always established by decrypt-then-compare.
type Vault struct {
	keys interfaces.KeyStore
	log  *slog.Logger
}

var _ interfaces.CredentialVault = (*Vault)(nil)

// NewVault creates a credential vault backed by the given key store.
func NewVault(keys interfaces.KeyStore, log *slog.Logger) *Vault {
	if log == nil {
		log = slog.Default()
	}
	return &Vault{keys: keys, log: log}
}

// MaxPlaintextSize returns the largest credential, in bytes, that pub can encrypt.
func MaxPlaintextSize(pub *rsa.PublicKey) int {
	return pub.Size() - 2*sha256.Size - 2
}

// MaxPlaintextSize returns the largest credential, in bytes, the configured key can encrypt.
func (v *Vault) MaxPlaintextSize(ctx context.Context) (int, error) {
	pub, err := v.keys.LoadPublicKey(ctx)
	if err != nil {
		return 0, err
	}
	return MaxPlaintextSize(pub), nil
}

// Encrypt encrypts plaintext and returns the hex-encoded ciphertext.
// Credentials longer than the key's maximum payload are rejected, never truncated.
func (v *Vault) Encrypt(ctx context.Context, plaintext string) (string, error) {
	pub, err := v.keys.LoadPublicKey(ctx)
	if err != nil {
		return "", err
	}

	if maxSize := MaxPlaintextSize(pub); len(plaintext) > maxSize {
		v.log.Debug("Credential exceeds key payload", "size", len(plaintext), "max", maxSize)
		return "", fmt.Errorf("%w: credential is %d bytes, key allows at most %d", interfaces.ErrCrypto, len(plaintext), maxSize)
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, []byte(plaintext), nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to encrypt: %v", interfaces.ErrCrypto, err)
	}

	return hex.EncodeToString(ciphertext), nil
}

// Decrypt decodes and decrypts a hex ciphertext produced by Encrypt.
func (v *Vault) Decrypt(ctx context.Context, ciphertextHex string) (string, error) {
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", fmt.Errorf("%w: invalid hex ciphertext: %v", interfaces.ErrCrypto, err)
	}
	if len(ciphertext) == 0 {
		return "", fmt.Errorf("%w: empty ciphertext", interfaces.ErrCrypto)
	}

	priv, err := v.keys.LoadPrivateKey(ctx)
	if err != nil {
		return "", err
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), nil, priv, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to decrypt: %v", interfaces.ErrCrypto, err)
	}

	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: decrypted credential is not valid UTF-8", interfaces.ErrCrypto)
	}

	return string(plaintext), nil
}

// Verify reports whether candidate matches the credential stored as ciphertext.
// A ciphertext that cannot be decrypted is an error, not a mismatch.
func (v *Vault) Verify(ctx context.Context, candidate, stored string) (bool, error) {
	plaintext, err := v.Decrypt(ctx, stored)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare([]byte(plaintext), []byte(candidate)) == 1, nil
}
