package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/driving-tests-backend/interfaces"
)

// MultiKeySource implements interfaces.KeySource over several sources with fallback.
// Fetch returns the key material from the first available source that has it.
type MultiKeySource struct {
	sources []interfaces.KeySource
	log     *slog.Logger
}

// NewMultiKeySource creates a new multi-source key source with fallback.
func NewMultiKeySource(sources []interfaces.KeySource, logger *slog.Logger) *MultiKeySource {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiKeySource{
		sources: sources,
		log:     logger,
	}
}

// Fetch tries each source in order. Returns ErrKeyNotFound only if every reachable
// source reported the key as missing.
func (m *MultiKeySource) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	var errs []error
	allNotFound := true

	for _, source := range m.sources {
		if !source.Available(ctx) {
			m.log.Debug("Key source unavailable", slog.String("source_name", source.Name()))
			allNotFound = false
			continue
		}

		data, err := source.Fetch(ctx)
		if err == nil {
			m.log.Info("Successfully fetched key material",
				slog.String("source_name", source.Name()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		if !errors.Is(err, interfaces.ErrKeyNotFound) {
			allNotFound = false
		}
		errs = append(errs, fmt.Errorf("%s: %w", source.Name(), err))
		m.log.Debug("Failed to fetch from key source",
			slog.String("source_name", source.Name()),
			"err", err)
	}

	m.log.Error("All key sources failed",
		slog.Int("failed_sources", len(errs)),
		slog.Duration("duration", time.Since(start)))

	if allNotFound && len(errs) > 0 {
		return nil, interfaces.ErrKeyNotFound
	}
	return nil, fmt.Errorf("all key sources failed: %v", errs)
}

// Available checks if any source is available.
func (m *MultiKeySource) Available(ctx context.Context) bool {
	for _, source := range m.sources {
		if source.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this source.
func (m *MultiKeySource) Name() string {
	return "multi-source"
}

// LocationURI returns a combined URI of all sources.
func (m *MultiKeySource) LocationURI() string {
	var locations []string
	for _, source := range m.sources {
		locations = append(locations, source.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
