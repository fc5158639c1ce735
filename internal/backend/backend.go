package backend

import (
	"context"
	"errors"

	"github.com/tinkerbell/vultrds/internal/backend/flatfile"
	"github.com/tinkerbell/vultrds/internal/frontend/vultr"
	"github.com/tinkerbell/vultrds/internal/healthcheck"
)

// ErrMissingBackendConfig indicates New was called without a backend configuration.
var ErrMissingBackendConfig = errors.New("no backend configuration specified in options")

// Client is an abstraction for all frontend clients. Each backend implementation should satisfy
// this interface.
type Client interface {
	vultr.Client
	healthcheck.Client
}

// New creates a backend instance for the configuration specified by opts. If no backend
// configuration is supplied, it returns ErrMissingBackendConfig.
func New(_ context.Context, opts Options) (Client, error) {
	switch {
	case opts.Flatfile != nil:
		return flatfile.FromYAMLFile(opts.Flatfile.Path)

	default:
		return nil, ErrMissingBackendConfig
	}
}

// Options contains all options for all backend implementations.
type Options struct {
	Flatfile *Flatfile
}

// Flatfile is the configuration for a flatfile backend.
type Flatfile struct {
	// Path is a path to a YAML file containing a list of flatfile instances.
	Path string
}
