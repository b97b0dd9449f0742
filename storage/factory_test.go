package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/driving-tests-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeySourceFor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := NewKeySourceFactory(logger)

	tests := []struct {
		name        string
		location    string
		wantType    interface{}
		wantURI     string
		expectError bool
	}{
		{
			name:     "bare path",
			location: "/etc/quiz/public-key.pem",
			wantType: &FileKeySource{},
			wantURI:  "file:///etc/quiz/public-key.pem",
		},
		{
			name:     "relative bare path",
			location: "public-key.pem",
			wantType: &FileKeySource{},
			wantURI:  "file://public-key.pem",
		},
		{
			name:     "absolute file uri",
			location: "file:///etc/quiz/public-key.pem",
			wantType: &FileKeySource{},
			wantURI:  "file:///etc/quiz/public-key.pem",
		},
		{
			name:     "relative file uri",
			location: "file://./keys/public-key.pem",
			wantType: &FileKeySource{},
			wantURI:  "file://./keys/public-key.pem",
		},
		{
			name:     "s3 with region",
			location: "s3://quiz-keys/prod/public-key.pem?region=eu-west-1",
			wantType: &S3KeySource{},
			wantURI:  "s3://quiz-keys/prod/public-key.pem?region=eu-west-1",
		},
		{
			name:     "s3 with credentials and endpoint",
			location: "s3://AKIA:secret@quiz-keys/public-key.pem?endpoint=http://localhost:9000",
			wantType: &S3KeySource{},
			wantURI:  "s3://quiz-keys/public-key.pem?region=us-east-1&endpoint=http://localhost:9000",
		},
		{
			name:     "vault",
			location: "vault://vault.example.com:8200/secret/quiz/public-key",
			wantType: &VaultKeySource{},
			wantURI:  "vault://vault.example.com:8200/secret/quiz/public-key?field=pem",
		},
		{
			name:     "vault with field",
			location: "vault://vault.example.com:8200/kv/quiz?field=public&scheme=http",
			wantType: &VaultKeySource{},
			wantURI:  "vault://vault.example.com:8200/kv/quiz?field=public",
		},
		{
			name:     "ipfs",
			location: "ipfs://localhost:5001/QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
			wantType: &IPFSKeySource{},
			wantURI:  "ipfs://localhost:5001/QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		},
		{
			name:     "multiple locations",
			location: "/etc/quiz/public-key.pem, s3://quiz-keys/public-key.pem",
			wantType: &MultiKeySource{},
			wantURI:  "multi:[file:///etc/quiz/public-key.pem,s3://quiz-keys/public-key.pem?region=us-east-1]",
		},
		{
			name:        "empty",
			location:    "",
			expectError: true,
		},
		{
			name:        "unsupported scheme",
			location:    "github://owner/repo",
			expectError: true,
		},
		{
			name:        "s3 without object key",
			location:    "s3://quiz-keys",
			expectError: true,
		},
		{
			name:        "vault without secret path",
			location:    "vault://vault.example.com:8200/secret",
			expectError: true,
		},
		{
			name:        "ipfs without cid",
			location:    "ipfs://localhost:5001/",
			expectError: true,
		},
		{
			name:        "ipfs with bad timeout",
			location:    "ipfs://localhost:5001/Qm123?timeout=soon",
			expectError: true,
		},
		{
			name:        "one bad location in list",
			location:    "/etc/quiz/public-key.pem,ftp://example.com/key.pem",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := factory.KeySourceFor(tt.location)
			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
				return
			}

			require.NoError(t, err)
			assert.IsType(t, tt.wantType, source)
			assert.Equal(t, tt.wantURI, source.LocationURI())
		})
	}
}

func TestPrivateKeySourceFor_RejectsIPFS(t *testing.T) {
	factory := NewKeySourceFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := factory.PrivateKeySourceFor("ipfs://localhost:5001/QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG")
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	_, err = factory.PrivateKeySourceFor("/etc/quiz/private-key.pem,ipfs://localhost:5001/Qm123")
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	source, err := factory.PrivateKeySourceFor("/etc/quiz/private-key.pem")
	require.NoError(t, err)
	assert.IsType(t, &FileKeySource{}, source)
}

func TestFileKeySource(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	path := filepath.Join(dir, "public-key.pem")
	keyPEM := []byte("-----BEGIN PUBLIC KEY-----\n-----END PUBLIC KEY-----\n")

	source, err := NewFileKeySource(path, logger)
	require.NoError(t, err)
	assert.Equal(t, "file-public-key.pem", source.Name())
	assert.True(t, source.Available(context.Background()))

	_, err = source.Fetch(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	require.NoError(t, os.WriteFile(path, keyPEM, 0o600))

	data, err := source.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, keyPEM, data)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = source.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	missingDir, err := NewFileKeySource(filepath.Join(dir, "nope", "key.pem"), logger)
	require.NoError(t, err)
	assert.False(t, missingDir.Available(context.Background()))

	_, err = NewFileKeySource("", logger)
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}
