package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ruteri/driving-tests-backend/interfaces"
)

// KeySourceFactory creates key sources from location URIs.
type KeySourceFactory struct {
	log *slog.Logger
}

var _ interfaces.KeySourceFactory = (*KeySourceFactory)(nil)

// NewKeySourceFactory creates a new factory instance.
func NewKeySourceFactory(logger *slog.Logger) *KeySourceFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeySourceFactory{log: logger}
}

// KeySourceFor creates a key source from a location URI. A comma-separated list
// of locations creates a MultiKeySource that falls back from one to the next.
//
// Supported forms:
//   - /path/to/key.pem or ./key.pem - Local file
//   - file:///absolute/path.pem or file://./relative/path.pem - Local file
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/object/key.pem?region=us-east-1&endpoint=host - S3 object
//   - vault://host:8200/mount/secret/path?field=pem&scheme=https&token_env=VAULT_TOKEN - Vault KV v2
//   - ipfs://host:5001/CID?timeout=30s - IPFS object (public keys only)
//
// Returns an error wrapping ErrInvalidLocationURI if the URI is invalid or the scheme is unsupported.
func (sf *KeySourceFactory) KeySourceFor(location string) (interfaces.KeySource, error) {
	return sf.keySourceFor(location, true)
}

// PrivateKeySourceFor is KeySourceFor restricted to schemes suitable for private keys.
func (sf *KeySourceFactory) PrivateKeySourceFor(location string) (interfaces.KeySource, error) {
	return sf.keySourceFor(location, false)
}

func (sf *KeySourceFactory) keySourceFor(location string, forPublicKey bool) (interfaces.KeySource, error) {
	parts := strings.Split(location, ",")
	if len(parts) == 1 {
		return sf.singleKeySourceFor(strings.TrimSpace(location), forPublicKey)
	}

	sources := make([]interfaces.KeySource, 0, len(parts))
	for _, part := range parts {
		source, err := sf.singleKeySourceFor(strings.TrimSpace(part), forPublicKey)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return NewMultiKeySource(sources, sf.log), nil
}

func (sf *KeySourceFactory) singleKeySourceFor(location string, forPublicKey bool) (interfaces.KeySource, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: empty location", interfaces.ErrInvalidLocationURI)
	}

	if !strings.Contains(location, "://") {
		return NewFileKeySource(location, sf.log)
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return sf.createFileKeySource(u)
	case "s3":
		return sf.createS3KeySource(u)
	case "vault":
		return sf.createVaultKeySource(u)
	case "ipfs":
		if !forPublicKey {
			return nil, fmt.Errorf("%w: ipfs locations are only allowed for public keys", interfaces.ErrInvalidLocationURI)
		}
		return sf.createIPFSKeySource(u)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
}

// createFileKeySource handles file:///absolute/path and file://./relative/path.
func (sf *KeySourceFactory) createFileKeySource(u *url.URL) (interfaces.KeySource, error) {
	sf.log.Debug("Creating file key source", slog.String("uri", u.String()))

	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}

	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, u.String())
	}

	return NewFileKeySource(path, sf.log)
}

// createS3KeySource handles s3://[ACCESS_KEY:SECRET_KEY@]bucket/key?region=&endpoint=
func (sf *KeySourceFactory) createS3KeySource(u *url.URL) (interfaces.KeySource, error) {
	sf.log.Debug("Creating S3 key source", slog.String("bucket", u.Host), slog.String("key", u.Path))

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}

	return NewS3KeySource(u.Host, strings.TrimPrefix(u.Path, "/"), region, query.Get("endpoint"), accessKey, secretKey, sf.log)
}

// createVaultKeySource handles vault://host:port/mount/secret/path?field=&scheme=&token_env=
func (sf *KeySourceFactory) createVaultKeySource(u *url.URL) (interfaces.KeySource, error) {
	sf.log.Debug("Creating Vault key source", slog.String("host", u.Host), slog.String("path", u.Path))

	query := u.Query()
	scheme := query.Get("scheme")
	if scheme == "" {
		scheme = "https"
	}

	mount, secretPath, found := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if !found {
		return nil, fmt.Errorf("%w: expected vault://host/mount/secret/path, got %s", interfaces.ErrInvalidLocationURI, u.String())
	}

	var token string
	if tokenEnv := query.Get("token_env"); tokenEnv != "" {
		token = os.Getenv(tokenEnv)
	}

	return NewVaultKeySource(fmt.Sprintf("%s://%s", scheme, u.Host), mount, secretPath, query.Get("field"), token, sf.log)
}

// createIPFSKeySource handles ipfs://host:port/CID?timeout=30s
func (sf *KeySourceFactory) createIPFSKeySource(u *url.URL) (interfaces.KeySource, error) {
	sf.log.Debug("Creating IPFS key source", slog.String("uri", u.String()))

	port := u.Port()
	if port == "" {
		port = "5001" // Default IPFS API port
	}

	timeout := 30 * time.Second
	if t := u.Query().Get("timeout"); t != "" {
		parsed, err := time.ParseDuration(t)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout %q", interfaces.ErrInvalidLocationURI, t)
		}
		timeout = parsed
	}

	return NewIPFSKeySource(u.Hostname(), port, u.Path, timeout, sf.log)
}
