// Package logger provides request logging for gin routers.
package logger

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/tinkerbell/vultrds/internal/metadata"
)

// Middleware creates a gin middleware that logs requests. It includes client_ip, method,
// status_code, path, latency and whether the metadata token was present. Successful requests are
// logged at V(1) because the agent polls every field on boot.
func Middleware(logger logr.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process the request recording how long it took.
		start := time.Now()
		c.Next()
		end := time.Now()

		// Build the path including query and fragment portions.
		var b strings.Builder
		b.WriteString(c.Request.URL.Path)
		if c.Request.URL.RawQuery != "" {
			b.WriteString("?")
			b.WriteString(c.Request.URL.RawQuery)
		}
		if c.Request.URL.RawFragment != "" {
			b.WriteString("#")
			b.WriteString(c.Request.URL.RawFragment)
		}
		path := b.String()

		status := c.Writer.Status()

		event := logger.WithValues(
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"status_code", status,
			"path", path,
			"latency", end.Sub(start),
			"token", c.GetHeader(metadata.TokenHeader) != "",
		)

		switch {
		case status < http.StatusBadRequest:
			event.V(1).Info("Handled request")

		case status < http.StatusInternalServerError:
			event.Info("Rejected request", "errors", c.Errors.Errors())

		default:
			msg := "No error message specified"
			errs := strings.Join(c.Errors.Errors(), "; ")
			if len(c.Errors.Errors()) > 0 {
				msg = c.Errors.Errors()[0]
			}

			event.Error(errors.New(msg), "Request failed", "all_errors", errs)
		}
	}
}
