package agent

import (
	"context"

	"github.com/tinkerbell/vultrds/internal/cloudconfig"
)

// Datasource is everything the provisioning pipeline consumes from one crawl.
type Datasource struct {
	Metadata      Metadata
	UserDataRaw   string
	VendorDataRaw string
	NetworkConfig cloudconfig.NetworkConfig
}

// Metadata is the instance identity part of a Datasource.
type Metadata struct {
	InstanceID    string   `json:"instance-id"`
	LocalHostname string   `json:"local-hostname"`
	PublicKeys    []string `json:"public-keys"`
	Region        string   `json:"region,omitempty"`
}

// Crawl verifies the platform, fetches metadata and synthesizes every document. Any failure
// aborts the crawl; there is no partial result.
func (a *Agent) Crawl(ctx context.Context) (*Datasource, error) {
	if !a.IsVultr(ctx) {
		return nil, ErrNotVultr
	}

	bundle, err := a.Metadata(ctx)
	if err != nil {
		return nil, err
	}

	vendor, err := a.VendorConfig(ctx)
	if err != nil {
		return nil, err
	}

	vendorData, err := vendor.Render()
	if err != nil {
		return nil, err
	}

	hostname := bundle.Instance.Hostname
	if hostname == "" {
		hostname = bundle.Hostname
	}

	ds := &Datasource{
		Metadata: Metadata{
			InstanceID:    bundle.Instance.InstanceID,
			LocalHostname: hostname,
			PublicKeys:    bundle.PublicKeys(),
			Region:        bundle.Instance.Region.RegionCode,
		},
		UserDataRaw:   bundle.UserData,
		VendorDataRaw: vendorData,
		NetworkConfig: vendor.Network,
	}

	a.log.Info("Crawled datasource",
		"instance_id", ds.Metadata.InstanceID,
		"hostname", ds.Metadata.LocalHostname,
		"interfaces", len(ds.NetworkConfig.Config)-1,
	)

	return ds, nil
}
