package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/driving-tests-backend/interfaces"
)

// IPFSKeySource reads public key material pinned in IPFS. Private keys must
// never be published to IPFS; the factory only accepts it for public keys.
type IPFSKeySource struct {
	shell       *shell.Shell
	host        string
	port        string
	cid         string
	log         *slog.Logger
	locationURI string
}

// NewIPFSKeySource creates a key source for the object cid served by the IPFS API at host:port.
func NewIPFSKeySource(host, port, cid string, timeout time.Duration, log *slog.Logger) (*IPFSKeySource, error) {
	cid = strings.Trim(cid, "/")
	if cid == "" {
		return nil, fmt.Errorf("%w: IPFS key location needs a CID", interfaces.ErrInvalidLocationURI)
	}

	apiURL := fmt.Sprintf("%s:%s", host, port)
	sh := shell.NewShell(apiURL)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}

	return &IPFSKeySource{
		shell:       sh,
		host:        host,
		port:        port,
		cid:         cid,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/%s", apiURL, cid),
	}, nil
}

// Fetch retrieves the object from IPFS.
func (s *IPFSKeySource) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	path := "/ipfs/" + s.cid

	if !s.shell.IsUp() {
		s.log.Warn("IPFS node unavailable",
			slog.String("host", s.host),
			slog.String("port", s.port))
		return nil, interfaces.ErrKeySourceUnavailable
	}

	reader, err := s.shell.Cat(path)
	if err != nil {
		if strings.Contains(err.Error(), "no link named") || strings.Contains(err.Error(), "not found") {
			return nil, interfaces.ErrKeyNotFound
		}
		s.log.Error("Failed to fetch data from IPFS",
			slog.String("path", path),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to fetch data from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}

	s.log.Debug("Fetched key material from IPFS",
		slog.String("path", path),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Available checks if the IPFS node is accessible.
func (s *IPFSKeySource) Available(ctx context.Context) bool {
	return s.shell.IsUp()
}

// Name returns a unique identifier for this key source.
func (s *IPFSKeySource) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", s.host, s.port)
}

// LocationURI returns the URI that identifies this key source.
func (s *IPFSKeySource) LocationURI() string {
	return s.locationURI
}
