// Package agent owns the per-boot datasource state: the platform detector, the memoized metadata
// client and the memoized interface resolver.
package agent

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/tinkerbell/vultrds/internal/cloudconfig"
	"github.com/tinkerbell/vultrds/internal/dserror"
	"github.com/tinkerbell/vultrds/internal/metadata"
)

// ErrNotVultr is returned by Crawl when no platform signal matched. It is a configuration error.
var ErrNotVultr = dserror.New(dserror.KindConfiguration, "detect platform", "host is not a Vultr instance")

// Detector decides whether the host is a Vultr instance.
type Detector interface {
	IsVultr(context.Context) bool
}

// MetadataSource supplies the instance metadata. Implementations memoize.
type MetadataSource interface {
	Get(context.Context) (*metadata.Bundle, error)
}

// Agent is the entrypoint for producing datasource documents. An Agent is meant to live for one
// boot; its collaborators cache what they fetch for that long.
type Agent struct {
	log      logr.Logger
	detector Detector
	source   MetadataSource
	resolver cloudconfig.InterfaceResolver
}

// New creates an Agent.
func New(logger logr.Logger, detector Detector, source MetadataSource, resolver cloudconfig.InterfaceResolver) *Agent {
	return &Agent{
		log:      logger,
		detector: detector,
		source:   source,
		resolver: resolver,
	}
}

// IsVultr reports whether the host is a Vultr instance.
func (a *Agent) IsVultr(ctx context.Context) bool {
	return a.detector.IsVultr(ctx)
}

// Metadata returns the instance metadata.
func (a *Agent) Metadata(ctx context.Context) (*metadata.Bundle, error) {
	return a.source.Get(ctx)
}

// NetworkConfig synthesizes the network configuration.
func (a *Agent) NetworkConfig(ctx context.Context) (cloudconfig.NetworkConfig, error) {
	bundle, err := a.source.Get(ctx)
	if err != nil {
		return cloudconfig.NetworkConfig{}, err
	}

	network, err := cloudconfig.SynthesizeNetwork(bundle, a.resolver)
	if err != nil {
		return cloudconfig.NetworkConfig{}, errors.Wrap(err, "synthesize network config")
	}
	return network, nil
}

// VendorConfig synthesizes the vendor configuration, embedding the network configuration.
func (a *Agent) VendorConfig(ctx context.Context) (cloudconfig.VendorConfig, error) {
	bundle, err := a.source.Get(ctx)
	if err != nil {
		return cloudconfig.VendorConfig{}, err
	}

	network, err := a.NetworkConfig(ctx)
	if err != nil {
		return cloudconfig.VendorConfig{}, err
	}

	return cloudconfig.SynthesizeVendor(bundle, network), nil
}
