package cryptoutils

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ruteri/driving-tests-backend/interfaces"
)

// KeyStore loads the credential key pair from key sources and caches each key
// after its first successful load. Keys are treated as immutable for the
// lifetime of the process; a failed load is not cached and is retried on the
// next call.
type KeyStore struct {
	publicSource  interfaces.KeySource
	privateSource interfaces.KeySource
	passphrase    []byte
	log           *slog.Logger

	mu         sync.Mutex
	publicKey  *rsa.PublicKey
	privateKey *rsa.PrivateKey
}

var _ interfaces.KeyStore = (*KeyStore)(nil)

// NewKeyStore creates a key store reading the public and private keys from the given sources.
// Either source may be nil if the corresponding key is never needed.
func NewKeyStore(publicSource, privateSource interfaces.KeySource, log *slog.Logger) *KeyStore {
	if log == nil {
		log = slog.Default()
	}
	return &KeyStore{
		publicSource:  publicSource,
		privateSource: privateSource,
		log:           log,
	}
}

// WithPassphrase creates a new KeyStore that decrypts the private key with the given passphrase.
func (s *KeyStore) WithPassphrase(passphrase []byte) *KeyStore {
	newStore := NewKeyStore(s.publicSource, s.privateSource, s.log)
	newStore.passphrase = append([]byte(nil), passphrase...)
	return newStore
}

// LoadPublicKey returns the RSA public key used to encrypt credentials.
func (s *KeyStore) LoadPublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.publicKey != nil {
		return s.publicKey, nil
	}

	data, err := s.fetch(ctx, s.publicSource, "public")
	if err != nil {
		return nil, err
	}

	publicKey, err := ParsePublicKeyPEM(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", interfaces.ErrKeyLoad, s.publicSource.Name(), err)
	}

	s.log.Info("Loaded public key",
		slog.String("source", s.publicSource.Name()),
		slog.Int("bits", publicKey.N.BitLen()))

	s.publicKey = publicKey
	return publicKey, nil
}

// LoadPrivateKey returns the RSA private key used to decrypt credentials.
func (s *KeyStore) LoadPrivateKey(ctx context.Context) (*rsa.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.privateKey != nil {
		return s.privateKey, nil
	}

	data, err := s.fetch(ctx, s.privateSource, "private")
	if err != nil {
		return nil, err
	}

	privateKey, err := ParsePrivateKeyPEM(data, s.passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", interfaces.ErrKeyLoad, s.privateSource.Name(), err)
	}

	s.log.Info("Loaded private key",
		slog.String("source", s.privateSource.Name()),
		slog.Int("bits", privateKey.N.BitLen()))

	s.privateKey = privateKey
	return privateKey, nil
}

// Preload loads both keys so that misconfiguration is reported at start-up rather than
// on the first request.
func (s *KeyStore) Preload(ctx context.Context) error {
	if _, err := s.LoadPublicKey(ctx); err != nil {
		return err
	}
	if _, err := s.LoadPrivateKey(ctx); err != nil {
		return err
	}
	return nil
}

func (s *KeyStore) fetch(ctx context.Context, source interfaces.KeySource, kind string) ([]byte, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: no %s key source configured", interfaces.ErrKeyLoad, kind)
	}

	data, err := source.Fetch(ctx)
	if err != nil {
		s.log.Error("Failed to fetch key material",
			slog.String("kind", kind),
			slog.String("source", source.Name()),
			"err", err)
		return nil, fmt.Errorf("%w: %s key from %s: %v", interfaces.ErrKeyLoad, kind, source.Name(), err)
	}
	return data, nil
}
