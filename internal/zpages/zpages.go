// Package zpages registers the operational endpoints of the metadata emulator.
package zpages

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tinkerbell/vultrds/internal/healthcheck"
	"github.com/tinkerbell/vultrds/internal/metrics"
)

// Configure configures router with /metrics, serving registry, and /healthz, querying backend.
func Configure(router gin.IRouter, registry *prometheus.Registry, backend healthcheck.Client) {
	metrics.Configure(router, registry)
	healthcheck.Configure(router, backend)
}
