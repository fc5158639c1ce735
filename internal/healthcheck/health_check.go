package healthcheck

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tinkerbell/vultrds/internal/build"
)

//go:generate mockgen -destination client_mock.go -package healthcheck . Client

// Client defines health check behavior for a service.
type Client interface {
	// IsHealthy returns true if the backend is healthy, else false.
	IsHealthy(context.Context) bool
}

// Status is the body served by the health check endpoint.
type Status struct {
	Version        string  `json:"version"`
	GitRev         string  `json:"git_rev"`
	Uptime         float64 `json:"uptime"`
	Goroutines     int     `json:"goroutines"`
	BackendHealthy bool    `json:"backend_status"`
}

// NewHandler returns a gin.HandlerFunc that provides a health check endpoint behavior. On each
// request it queries client.IsHealthy and returns a 200 if the backend is healthy, else a 500.
func NewHandler(client Client) gin.HandlerFunc {
	start := time.Now()
	return func(ctx *gin.Context) {
		isHealthy := client.IsHealthy(ctx)

		res := Status{
			Version:        build.GetVersion(),
			GitRev:         build.GetGitRevision(),
			Uptime:         time.Since(start).Seconds(),
			Goroutines:     runtime.NumGoroutine(),
			BackendHealthy: isHealthy,
		}

		status := http.StatusOK
		if !isHealthy {
			status = http.StatusInternalServerError
		}

		ctx.JSON(status, res)
	}
}

// Configure serves the vultrds health status on /healthz. The emulator backend stands in for the
// metadata API, so an unhealthy backend reports 500 to callers probing the emulator.
func Configure(router gin.IRouter, client Client) {
	router.GET("/healthz", NewHandler(client))
}
