package interfaces

import (
	"context"
	"crypto/rsa"
)

// KeySource is any location that PEM-encoded key material can be read from.
type KeySource interface {
	// Fetch returns the raw PEM bytes. Returns ErrKeyNotFound if the key does not exist.
	Fetch(ctx context.Context) ([]byte, error)

	// Available checks if the source is currently reachable.
	Available(ctx context.Context) bool

	// Name returns a unique identifier for this source.
	Name() string

	// LocationURI returns the URI this source was created from.
	LocationURI() string
}

// KeySourceFactory creates key sources from location URIs.
type KeySourceFactory interface {
	KeySourceFor(location string) (KeySource, error)
}

// KeyStore supplies the asymmetric key pair used to protect credentials.
type KeyStore interface {
	LoadPublicKey(ctx context.Context) (*rsa.PublicKey, error)
	LoadPrivateKey(ctx context.Context) (*rsa.PrivateKey, error)
}
