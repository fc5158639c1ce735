package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tinkerbell/vultrds/internal/backend"
	"github.com/tinkerbell/vultrds/internal/frontend/vultr"
	vultrdshttp "github.com/tinkerbell/vultrds/internal/http"
	"github.com/tinkerbell/vultrds/internal/logger"
	"github.com/tinkerbell/vultrds/internal/metrics"
	"github.com/tinkerbell/vultrds/internal/xff"
	"github.com/tinkerbell/vultrds/internal/zpages"
)

func newServeCommand(root *RootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Vultr metadata API from a flatfile",
		Long: `Run a metadata API emulator. Instances are read from the YAML file given by
--flatfile-path and matched to requests by source address, or by X-Forwarded-For when the peer is
a trusted proxy. The emulator also serves /metrics and /healthz.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.serve()
		},
	}

	cmd.Flags().Int("http-port", 50061, "Port to listen on for HTTP requests")
	cmd.Flags().String("flatfile-path", "", "Path to the flatfile instance definitions")
	cmd.Flags().String(
		"trusted-proxies",
		"",
		"A comma separated list of allowed peer IPs and/or CIDR blocks to replace with X-Forwarded-For",
	)

	return cmd
}

func (c *RootCommand) serve() error {
	be, err := backend.New(c.ctx, backend.Options{
		Flatfile: &backend.Flatfile{Path: c.Opts.FlatfilePath},
	})
	if err != nil {
		return errors.Errorf("initialize backend: %v", err)
	}

	xffmw, err := xff.MiddlewareFromUnparsed(c.Opts.TrustedProxies)
	if err != nil {
		return err
	}

	registry := metrics.NewRegistry()

	router := gin.New()
	router.Use(
		gin.Recovery(),
		xffmw,
		logger.Middleware(c.log.WithName("http")),
		metrics.InstrumentRequestCount(registry),
		metrics.InstrumentRequestDuration(registry),
	)

	zpages.Configure(router, registry, be)
	vultr.New(c.log.WithName("frontend"), be).Configure(router)

	// Listen for signals to gracefully shutdown.
	ctx, cancel := signal.NotifyContext(c.ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	return vultrdshttp.Serve(ctx, c.log, fmt.Sprintf(":%v", c.Opts.HTTPPort), router)
}
