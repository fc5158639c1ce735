package cmd

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tinkerbell/vultrds/internal/cache"
	"github.com/tinkerbell/vultrds/internal/dserror"
)

// Vendor data output formats.
const (
	VendorFormatCloudConfig = "cloud-config"
	VendorFormatYAML        = "yaml"
)

func newRenderCommand(root *RootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Crawl the datasource and write the network and vendor configuration",
		Long: `Detect the platform, fetch instance metadata and synthesize the network configuration and
vendor data. Documents are written to the paths given by --network-out and --vendor-out, or to
stdout when a path is empty. The network configuration is also written to the cache directory.

With --cache-fallback, a metadata fetch failure falls back to the cached network configuration;
vendor data is not written in that case.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.render(cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("network-out", "", "Path to write the network configuration JSON; stdout when empty")
	cmd.Flags().String("vendor-out", "", "Path to write vendor data; stdout when empty")
	cmd.Flags().String("vendor-format", VendorFormatCloudConfig, "Vendor data format: cloud-config or yaml")
	cmd.Flags().String("cache-dir", cache.DefaultDir, "Directory holding the network configuration cache")
	cmd.Flags().Bool("cache-fallback", false, "Use the cached network configuration when metadata cannot be fetched")

	return cmd
}

func (c *RootCommand) render(stdout io.Writer) error {
	if f := c.Opts.VendorFormat; f != VendorFormatCloudConfig && f != VendorFormatYAML {
		return errors.Errorf("unknown vendor format: %q", f)
	}

	a, err := c.newAgent()
	if err != nil {
		return err
	}

	store := cache.NewStore(c.fs, c.Opts.CacheDir)

	ds, err := a.Crawl(c.ctx)
	if err != nil {
		if !c.Opts.CacheFallback || !dserror.IsRetryable(err) {
			return err
		}

		cached, cerr := store.Read()
		if cerr != nil {
			return errors.Wrap(cerr, "read cache after fetch failure")
		}
		if cached == "" {
			return errors.Wrap(err, "no cached network configuration")
		}

		c.log.Error(err, "Metadata unavailable, using cached network configuration", "path", store.Path())
		return c.output(stdout, c.Opts.NetworkOut, cached)
	}

	network, err := store.Write(ds.NetworkConfig)
	if err != nil {
		return err
	}
	c.log.Info("Updated network cache", "path", store.Path())

	if err := c.output(stdout, c.Opts.NetworkOut, network); err != nil {
		return err
	}

	vendorData := ds.VendorDataRaw
	if c.Opts.VendorFormat == VendorFormatYAML {
		vendor, err := a.VendorConfig(c.ctx)
		if err != nil {
			return err
		}
		if vendorData, err = vendor.YAML(); err != nil {
			return err
		}
	}

	return c.output(stdout, c.Opts.VendorOut, vendorData)
}

// output writes content to path, or to stdout when path is empty.
func (c *RootCommand) output(stdout io.Writer, path, content string) error {
	if path == "" {
		_, err := fmt.Fprintln(stdout, content)
		return err
	}

	if err := afero.WriteFile(c.fs, path, []byte(content), 0o600); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
