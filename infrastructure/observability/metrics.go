// Package observability exposes Prometheus metrics for the HTTP surface and
// the resolution engine.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"treeservice/application/ports"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Resolution metrics
	Resolutions        *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	NodesVisited       prometheus.Histogram

	// Write metrics
	TreeWrites    prometheus.Counter
	NodesUpserted prometheus.Counter
}

var _ ports.ResolutionMetrics = (*Collector)(nil)

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Resolution passes by configuration mode",
			},
			[]string{"mode"},
		),
		ResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolution_duration_seconds",
				Help:      "Resolution pass duration in seconds",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"mode"},
		),
		NodesVisited: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolution_nodes_visited",
				Help:      "Reachable nodes per resolution pass",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		TreeWrites: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tree_writes_total",
				Help:      "Total number of tree writes",
			},
		),
		NodesUpserted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nodes_upserted_total",
				Help:      "Total number of node upserts from tree writes",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Resolutions,
		c.ResolutionDuration,
		c.NodesVisited,
		c.TreeWrites,
		c.NodesUpserted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveResolution implements ports.ResolutionMetrics
func (c *Collector) ObserveResolution(mode string, nodes int, duration time.Duration) {
	c.Resolutions.WithLabelValues(mode).Inc()
	c.ResolutionDuration.WithLabelValues(mode).Observe(duration.Seconds())
	c.NodesVisited.Observe(float64(nodes))
}

// ObserveTreeWrite implements ports.ResolutionMetrics
func (c *Collector) ObserveTreeWrite(nodes int) {
	c.TreeWrites.Inc()
	c.NodesUpserted.Add(float64(nodes))
}

// ObserveHTTP records one request; route is the matched pattern, not the path
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
