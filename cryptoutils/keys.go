package cryptoutils

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// DefaultKeyBits is the RSA modulus size used when generating new key pairs.
const DefaultKeyBits = 2048

// ParsePublicKeyPEM parses an RSA public key from PEM.
// Accepted block types: "PUBLIC KEY" (PKIX), "RSA PUBLIC KEY" (PKCS#1) and
// "CERTIFICATE", in which case the certificate's public key is used.
func ParsePublicKeyPEM(publicKeyPEM []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(publicKeyPEM)
	if block == nil {
		return nil, errors.New("failed to decode public key PEM")
	}

	var key any
	var err error
	switch block.Type {
	case "PUBLIC KEY":
		key, err = x509.ParsePKIXPublicKey(block.Bytes)
	case "RSA PUBLIC KEY":
		key, err = x509.ParsePKCS1PublicKey(block.Bytes)
	case "CERTIFICATE":
		var cert *x509.Certificate
		cert, err = x509.ParseCertificate(block.Bytes)
		if err == nil {
			key = cert.PublicKey
		}
	default:
		return nil, fmt.Errorf("unexpected PEM block type %q for public key", block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	publicKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key: %T", key)
	}
	return publicKey, nil
}

// ParsePrivateKeyPEM parses an RSA private key from PEM.
//
// Unencrypted keys may be PKCS#8 ("PRIVATE KEY"), PKCS#1 ("RSA PRIVATE KEY") or
// OpenSSH format. When passphrase is non-empty the key must be encrypted, either
// as a legacy encrypted PEM block or as a passphrase-protected OpenSSH key.
func ParsePrivateKeyPEM(privateKeyPEM []byte, passphrase []byte) (*rsa.PrivateKey, error) {
	var key any
	var err error

	if len(passphrase) > 0 {
		key, err = ssh.ParseRawPrivateKeyWithPassphrase(privateKeyPEM, passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt private key: %w", err)
		}
	} else {
		key, err = parseUnencryptedPrivateKey(privateKeyPEM)
		if err != nil {
			return nil, err
		}
	}

	switch k := key.(type) {
	case *rsa.PrivateKey:
		if err := k.Validate(); err != nil {
			return nil, fmt.Errorf("invalid RSA private key: %w", err)
		}
		return k, nil
	default:
		return nil, fmt.Errorf("not an RSA private key: %T", key)
	}
}

func parseUnencryptedPrivateKey(privateKeyPEM []byte) (any, error) {
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, errors.New("failed to decode private key PEM")
	}

	switch block.Type {
	case "PRIVATE KEY", "RSA PRIVATE KEY":
		privateKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			// Try PKCS#1 format if PKCS#8 fails
			privateKey, err = x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to parse private key: %w", err)
			}
		}
		return privateKey, nil
	case "OPENSSH PRIVATE KEY":
		privateKey, err := ssh.ParseRawPrivateKey(privateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse OpenSSH private key: %w", err)
		}
		return privateKey, nil
	default:
		return nil, fmt.Errorf("unexpected PEM block type %q for private key", block.Type)
	}
}

// GenerateKeyPairPEM generates a new RSA key pair and returns the PKIX public key
// and PKCS#8 private key, both PEM-encoded.
func GenerateKeyPairPEM(bits int) (publicKeyPEM []byte, privateKeyPEM []byte, err error) {
	if bits <= 0 {
		bits = DefaultKeyBits
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	privateKeyBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, nil, err
	}

	publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, nil, err
	}

	publicKeyPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicKeyBytes})
	privateKeyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateKeyBytes})
	return publicKeyPEM, privateKeyPEM, nil
}
