package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	routeLabel      = "route"
	methodLabel     = "method"
	statusCodeLabel = "status_code"
)

// InstrumentRequestCount adds a CounterVec to registrar and returns a handler that increments
// the count with every request.
func InstrumentRequestCount(registrar prometheus.Registerer) gin.HandlerFunc {
	m := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vultrds_http_requests_total",
			Help: "Count of HTTP requests",
		},
		[]string{routeLabel, methodLabel, statusCodeLabel},
	)

	registrar.MustRegister(m)

	return func(ctx *gin.Context) {
		ctx.Next()
		m.WithLabelValues(
			route(ctx),
			ctx.Request.Method,
			strconv.Itoa(ctx.Writer.Status()),
		).Inc()
	}
}

// InstrumentRequestDuration adds a HistogramVec to registrar and returns a handler that records
// request durations with every request.
func InstrumentRequestDuration(registrar prometheus.Registerer) gin.HandlerFunc {
	m := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vultrds_http_request_duration_seconds",
			Help:    "Histogram of response time for HTTP requests in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{routeLabel, methodLabel, statusCodeLabel},
	)

	registrar.MustRegister(m)

	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		m.WithLabelValues(
			route(ctx),
			ctx.Request.Method,
			strconv.Itoa(ctx.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

// route returns the registered route for the request. Unmatched requests share one label value
// so arbitrary paths cannot grow the label set.
func route(ctx *gin.Context) string {
	if r := ctx.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}
