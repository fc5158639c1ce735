// Package vultr serves the Vultr metadata API. It lets the agent run end to end away from the
// platform.
package vultr

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/tinkerbell/vultrds/internal/metadata"
)

// ErrInstanceNotFound indicates an instance could not be found for the given identifier.
var ErrInstanceNotFound = errors.New("instance not found")

const internalPrefix = "/v1/internal/"

//go:generate mockgen -destination client_mock.go -package vultr . Client

// Client is a backend for retrieving Vultr instance data.
type Client interface {
	// GetVultrInstance retrieves the Instance associated with ip. If no Instance can be found,
	// it should return ErrInstanceNotFound.
	GetVultrInstance(_ context.Context, ip string) (Instance, error)
}

// Frontend configures routers with handlers for the Vultr metadata API.
type Frontend struct {
	log    logr.Logger
	client Client
}

// New creates a new Frontend.
func New(logger logr.Logger, client Client) Frontend {
	return Frontend{
		log:    logger,
		client: client,
	}
}

// Configure registers every metadata endpoint on router. Requests without the metadata token
// header are rejected.
func (f Frontend) Configure(router gin.IRouter) {
	api := router.Group("/", requireToken)

	for field, path := range metadata.Paths() {
		// Fields under the internal prefix are served by the parameterized route below.
		if strings.HasPrefix(path, internalPrefix) {
			continue
		}
		api.GET(path, f.handler(fieldFilters[field]))
	}

	api.GET(internalPrefix+":field", func(ctx *gin.Context) {
		field := metadata.Field(ctx.Param("field"))

		if filter, ok := fieldFilters[field]; ok {
			f.handler(filter)(ctx)
			return
		}

		if _, err := metadata.Path(field); err != nil {
			_ = ctx.AbortWithError(http.StatusNotFound, err)
			return
		}

		f.handler(func(i Instance) (string, error) {
			v, ok := i.Internal[string(field)]
			if !ok {
				return "", ErrInstanceNotFound
			}
			return v, nil
		})(ctx)
	})
}

func (f Frontend) handler(filter filterFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		instance, err := f.getInstance(ctx, ctx.Request)
		if err != nil {
			_ = ctx.AbortWithError(statusFor(err), err)
			return
		}

		body, err := filter(instance)
		if err != nil {
			_ = ctx.AbortWithError(statusFor(err), err)
			return
		}

		ctx.String(http.StatusOK, body)
	}
}

// getInstance retrieves the Instance for the request's remote address.
func (f Frontend) getInstance(ctx context.Context, r *http.Request) (Instance, error) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		f.log.Info("Invalid remote address", "err", err)
		return Instance{}, errInvalidRemoteAddr
	}

	return f.client.GetVultrInstance(ctx, ip)
}

var errInvalidRemoteAddr = errors.New("invalid remote addr")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidRemoteAddr):
		return http.StatusBadRequest
	case errors.Is(err, ErrInstanceNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func requireToken(ctx *gin.Context) {
	if ctx.GetHeader(metadata.TokenHeader) != "vultr" {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	ctx.Next()
}
