// Package cmd implements the vultrds command line.
package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/equinix-labs/otel-init-go/otelinit"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tinkerbell/vultrds/internal/agent"
	"github.com/tinkerbell/vultrds/internal/metadata"
	"github.com/tinkerbell/vultrds/internal/netif"
	"github.com/tinkerbell/vultrds/internal/platform"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const longHelp = `
Discover Vultr instance metadata and produce cloud-init datasource documents.

Each CLI argument has a corresponding environment variable in the form of the CLI argument prefixed
with VULTRDS. If both the flag and environment variable form are specified, the flag form takes
precedence.

Examples
  --metadata-url       VULTRDS_METADATA_URL
  --metadata-retries   VULTRDS_METADATA_RETRIES
  --cache-dir          VULTRDS_CACHE_DIR
`

// EnvNamePrefix defines the environment variable prefix required for all environment configuration.
const EnvNamePrefix = "VULTRDS"

// RootCommandOptions encompasses all the configurability of the RootCommand and its
// subcommands.
type RootCommandOptions struct {
	MetadataURL     string        `mapstructure:"metadata-url"`
	MetadataTimeout time.Duration `mapstructure:"metadata-timeout"`
	MetadataRetries int           `mapstructure:"metadata-retries"`
	MetadataWait    time.Duration `mapstructure:"metadata-wait"`

	SysfsPath   string `mapstructure:"sysfs"`
	CmdlinePath string `mapstructure:"cmdline-path"`
	MarkerDir   string `mapstructure:"marker-dir"`

	LogLevel int `mapstructure:"log-level"`

	// metadata
	Field string `mapstructure:"field"`
	Query string `mapstructure:"query"`

	// render
	NetworkOut    string `mapstructure:"network-out"`
	VendorOut     string `mapstructure:"vendor-out"`
	VendorFormat  string `mapstructure:"vendor-format"`
	CacheDir      string `mapstructure:"cache-dir"`
	CacheFallback bool   `mapstructure:"cache-fallback"`

	// serve
	FlatfilePath   string `mapstructure:"flatfile-path"`
	HTTPPort       int    `mapstructure:"http-port"`
	TrustedProxies string `mapstructure:"trusted-proxies"`
}

// MetadataConfig converts the metadata options to a metadata.Config.
func (o RootCommandOptions) MetadataConfig() (metadata.Config, error) {
	cfg := metadata.Config{
		URL:     o.MetadataURL,
		Timeout: o.MetadataTimeout,
		Retries: o.MetadataRetries,
		Wait:    o.MetadataWait,
	}

	if cfg.URL == "" {
		return metadata.Config{}, errors.New("metadata-url cannot be empty")
	}
	if cfg.Retries < 0 {
		return metadata.Config{}, errors.Errorf("metadata-retries cannot be negative: %d", cfg.Retries)
	}

	return cfg, nil
}

// RootCommand is the root command that represents the entrypoint to vultrds.
type RootCommand struct {
	*cobra.Command
	vpr  *viper.Viper
	Opts RootCommandOptions

	// fs backs every file the commands read or write. Tests replace it.
	fs afero.Fs
	// ctx and log are populated in PersistentPreRunE.
	ctx      context.Context
	log      logr.Logger
	shutdown []func()
}

// NewRootCommand creates new RootCommand instance.
func NewRootCommand() (*RootCommand, error) {
	rootCmd := &RootCommand{
		Command: &cobra.Command{
			Use:          "vultrds",
			Long:         longHelp,
			SilenceUsage: true,
		},
		fs: afero.NewOsFs(),
	}

	rootCmd.PersistentPreRunE = rootCmd.PreRun
	rootCmd.PersistentPostRun = rootCmd.PostRun
	rootCmd.PersistentFlags().SortFlags = false // Print flag help in the order they're specified.

	// Ensure keys with `-` use `_` for env keys else Viper won't match them.
	rootCmd.vpr = viper.NewWithOptions(viper.EnvKeyReplacer(strings.NewReplacer("-", "_")))
	rootCmd.vpr.SetEnvPrefix(EnvNamePrefix)

	rootCmd.configureFlags()

	rootCmd.AddCommand(
		newDetectCommand(rootCmd),
		newMetadataCommand(rootCmd),
		newRenderCommand(rootCmd),
		newServeCommand(rootCmd),
	)

	rootCmd.configureLegacyFlags()

	for _, c := range append(rootCmd.Commands(), rootCmd.Command) {
		if err := rootCmd.bindFlags(c.Flags()); err != nil {
			return nil, err
		}
	}
	if err := rootCmd.bindFlags(rootCmd.PersistentFlags()); err != nil {
		return nil, err
	}

	return rootCmd, nil
}

// PreRun satisfies cobra.Command.PersistentPreRunE. It populates c.Opts, builds the logger and
// starts tracing.
func (c *RootCommand) PreRun(cmd *cobra.Command, _ []string) error {
	if err := c.vpr.Unmarshal(&c.Opts); err != nil {
		return err
	}

	zl, err := newZapLogger(c.Opts.LogLevel)
	if err != nil {
		return errors.Errorf("initialize logger: %v", err)
	}
	c.log = zapr.NewLogger(zl).WithName("vultrds")
	c.shutdown = append(c.shutdown, func() { _ = zl.Sync() })

	c.log.V(1).Info("Root command options", "opts", fmt.Sprintf("%+v", c.Opts))

	ctx, otelShutdown := otelinit.InitOpenTelemetry(cmd.Context(), "vultrds")
	c.ctx = ctx
	c.shutdown = append(c.shutdown, func() { otelShutdown(ctx) })

	return nil
}

// PostRun satisfies cobra.Command.PersistentPostRun. It flushes telemetry.
func (c *RootCommand) PostRun(*cobra.Command, []string) {
	for i := len(c.shutdown) - 1; i >= 0; i-- {
		c.shutdown[i]()
	}
	c.shutdown = nil
}

// newDetector builds the platform detector from the sysfs, cmdline and marker options.
func (c *RootCommand) newDetector() (*platform.Detector, error) {
	sysinfo, err := platform.NewSysfsReader(c.Opts.SysfsPath)
	if err != nil {
		return nil, err
	}

	detector := platform.NewDetector(c.log.WithName("platform"), sysinfo, c.fs)
	detector.CmdlinePath = c.Opts.CmdlinePath
	detector.MarkerDir = c.Opts.MarkerDir

	return detector, nil
}

// newAgent wires the platform detector, metadata client and interface resolver for one run.
func (c *RootCommand) newAgent() (*agent.Agent, error) {
	cfg, err := c.Opts.MetadataConfig()
	if err != nil {
		return nil, err
	}

	detector, err := c.newDetector()
	if err != nil {
		return nil, err
	}

	lister, err := netif.NewSysfsLister(c.Opts.SysfsPath)
	if err != nil {
		return nil, err
	}

	return agent.New(
		c.log.WithName("agent"),
		detector,
		metadata.NewClient(c.log.WithName("metadata"), cfg),
		netif.NewResolver(c.log.WithName("netif"), lister),
	), nil
}

func (c *RootCommand) configureFlags() {
	def := metadata.DefaultConfig()

	c.PersistentFlags().String("metadata-url", def.URL, "Base URL of the metadata API")
	c.PersistentFlags().Duration("metadata-timeout", def.Timeout, "Timeout for each metadata request")
	c.PersistentFlags().Int("metadata-retries", def.Retries, "Additional attempts made after a failed metadata request")
	c.PersistentFlags().Duration("metadata-wait", def.Wait, "Delay between metadata request attempts")

	c.PersistentFlags().String("sysfs", "/sys", "Mount point of sysfs")
	c.PersistentFlags().String("cmdline-path", platform.DefaultCmdlinePath, "Path to the kernel command line")
	c.PersistentFlags().String("marker-dir", platform.DefaultMarkerDir, "Directory whose presence forces platform detection")

	c.PersistentFlags().Int("log-level", 0, "Log verbosity; higher is more verbose")
}

// configureLegacyFlags accepts the underscore spelling of the datasource settings used by
// existing cloud.cfg snippets.
func (c *RootCommand) configureLegacyFlags() {
	c.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		switch name {
		case "url":
			return pflag.NormalizedName("metadata-url")
		case "timeout":
			return pflag.NormalizedName("metadata-timeout")
		case "retries":
			return pflag.NormalizedName("metadata-retries")
		case "wait":
			return pflag.NormalizedName("metadata-wait")
		default:
			return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
		}
	})
}

func (c *RootCommand) bindFlags(flags *pflag.FlagSet) error {
	if err := c.vpr.BindPFlags(flags); err != nil {
		return err
	}

	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = c.vpr.BindEnv(f.Name)
	})

	return err
}

func newZapLogger(level int) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-level))
	cfg.DisableStacktrace = true
	return cfg.Build()
}
