// Package cache persists the synthesized network configuration so it can be reused on a later
// boot when the metadata API is unreachable.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/tinkerbell/vultrds/internal/cloudconfig"
)

const (
	// DefaultDir is the directory holding cached documents.
	DefaultDir = "/etc/vultr/cache"

	networkFile = "network"
)

// Store reads and writes the network cache file. Whether to read or write is the caller's
// decision.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore returns a Store keeping its file under dir on fs.
func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// Path returns the location of the network cache file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, networkFile)
}

// Read returns the cached JSON text, or an empty string when no cache exists.
func (s *Store) Read() (string, error) {
	b, err := afero.ReadFile(s.fs, s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrap(err, "read network cache")
	}
	return string(b), nil
}

// ReadNetwork decodes the cached document. It returns nil when no cache exists.
func (s *Store) ReadNetwork() (*cloudconfig.NetworkConfig, error) {
	content, err := s.Read()
	if err != nil || content == "" {
		return nil, err
	}

	var network cloudconfig.NetworkConfig
	if err := json.Unmarshal([]byte(content), &network); err != nil {
		return nil, errors.Wrap(err, "decode network cache")
	}
	return &network, nil
}

// Write serializes network to JSON and replaces the cache file, creating the directory when
// needed. It returns the text written.
func (s *Store) Write(network cloudconfig.NetworkConfig) (string, error) {
	b, err := network.JSON()
	if err != nil {
		return "", err
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create cache directory")
	}

	if err := afero.WriteFile(s.fs, s.Path(), b, 0o600); err != nil {
		return "", errors.Wrap(err, "write network cache")
	}

	return string(b), nil
}
