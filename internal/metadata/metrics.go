package metadata

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	fieldLabel  = "field"
	resultLabel = "result"

	// dynamicFieldLabel stands in for app- and md- fields so the label set stays bounded.
	dynamicFieldLabel = "dynamic"
)

type collectors struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newCollectors() *collectors {
	return &collectors{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vultrds_metadata_requests_total",
				Help: "Count of metadata API requests by field and result.",
			},
			[]string{fieldLabel, resultLabel},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vultrds_metadata_request_duration_seconds",
				Help:    "Histogram of metadata API request durations in seconds.",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{fieldLabel},
		),
	}
}

func (c *collectors) register(r prometheus.Registerer) {
	r.MustRegister(c.requests, c.duration)
}

func (c *collectors) observe(field Field, err error, elapsed time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	label := fieldLabelValue(field)
	c.requests.WithLabelValues(label, result).Inc()
	c.duration.WithLabelValues(label).Observe(elapsed.Seconds())
}

func fieldLabelValue(field Field) string {
	if _, ok := paths[field]; ok {
		return string(field)
	}
	return dynamicFieldLabel
}
