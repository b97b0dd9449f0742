package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/driving-tests-backend/interfaces"
)

// FileKeySource reads key material from the local file system.
type FileKeySource struct {
	path        string
	log         *slog.Logger
	locationURI string
}

// NewFileKeySource creates a key source for the PEM file at path.
func NewFileKeySource(path string, log *slog.Logger) (*FileKeySource, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty key file path", interfaces.ErrInvalidLocationURI)
	}

	return &FileKeySource{
		path:        path,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", path),
	}, nil
}

// Fetch reads the key file. Returns ErrKeyNotFound if the file doesn't exist.
func (s *FileKeySource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, interfaces.ErrKeyNotFound
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	s.log.Debug("Fetched key material from file",
		slog.String("path", s.path),
		slog.Int("size", len(data)))

	return data, nil
}

// Available checks if the key file's directory exists.
func (s *FileKeySource) Available(ctx context.Context) bool {
	_, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		s.log.Debug("File key source unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this key source.
func (s *FileKeySource) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.path))
}

// LocationURI returns the URI that identifies this key source.
func (s *FileKeySource) LocationURI() string {
	return s.locationURI
}
