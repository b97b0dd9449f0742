package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/driving-tests-backend/interfaces"
)

// DefaultVaultField is the KV field holding the PEM text when none is configured.
const DefaultVaultField = "pem"

// VaultKeySource reads key material from a HashiCorp Vault KV v2 secret.
// The client token is taken from the VAULT_TOKEN environment variable, as with
// the vault CLI, unless one is set explicitly.
type VaultKeySource struct {
	client      *api.Client
	mountPath   string
	secretPath  string
	field       string
	log         *slog.Logger
	locationURI string
}

// NewVaultKeySource creates a key source for a KV v2 secret.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV mount path (e.g. "secret")
//   - secretPath: Path of the secret within the mount (e.g. "quiz/private-key")
//   - field: Field of the secret holding the PEM text
//   - token: Client token; if empty the client's environment configuration is used
//   - log: Structured logger for operational insights
func NewVaultKeySource(address, mountPath, secretPath, field, token string, log *slog.Logger) (*VaultKeySource, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.Trim(mountPath, "/")
	secretPath = strings.Trim(secretPath, "/")
	if mountPath == "" || secretPath == "" {
		return nil, fmt.Errorf("%w: Vault key location needs mount and secret path", interfaces.ErrInvalidLocationURI)
	}
	if field == "" {
		field = DefaultVaultField
	}

	return &VaultKeySource{
		client:      client,
		mountPath:   mountPath,
		secretPath:  secretPath,
		field:       field,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s?field=%s", strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://"), mountPath, secretPath, field),
	}, nil
}

// Fetch reads the configured field of the secret.
func (s *VaultKeySource) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()

	// Vault KV v2 path structure
	path := fmt.Sprintf("%s/data/%s", s.mountPath, s.secretPath)

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("Failed to read from Vault",
			slog.String("path", path),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrKeySourceUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		s.log.Debug("Key secret not found in Vault", slog.String("path", path))
		return nil, interfaces.ErrKeyNotFound
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}

	content, ok := data[s.field]
	if !ok {
		s.log.Debug("Key field not found in Vault secret",
			slog.String("path", path),
			slog.String("field", s.field))
		return nil, interfaces.ErrKeyNotFound
	}

	contentStr, ok := content.(string)
	if !ok {
		return nil, fmt.Errorf("invalid content format in Vault data")
	}

	s.log.Debug("Fetched key material from Vault",
		slog.String("path", path),
		slog.Duration("duration", time.Since(start)))

	return []byte(contentStr), nil
}

// Available checks that Vault is initialized and unsealed.
func (s *VaultKeySource) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := s.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		s.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		s.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name returns a unique identifier for this key source.
func (s *VaultKeySource) Name() string {
	return fmt.Sprintf("vault-%s-%s", s.mountPath, s.secretPath)
}

// LocationURI returns the URI that identifies this key source.
func (s *VaultKeySource) LocationURI() string {
	return s.locationURI
}
