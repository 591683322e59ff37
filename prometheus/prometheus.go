// Package prometheus exports crawl metrics to Prometheus.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "siterag"

// Metrics holds the collectors shared by the instrumented components.
type Metrics struct {
	registry *prometheus.Registry

	Pages     *prometheus.CounterVec
	Jobs      *prometheus.CounterVec
	Vectors   prometheus.Counter
	Fetches   *prometheus.CounterVec
	FetchTime *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages processed by crawl jobs, by outcome.",
		}, []string{"status"}),
		Jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Crawl jobs finished, by terminal status.",
		}, []string{"status"}),
		Vectors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vectors_total",
			Help:      "Vectors written by finished crawl jobs.",
		}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Fetch attempts, by result code.",
		}, []string{"code"}),
		FetchTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Fetch latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"code"}),
	}
	m.registry.MustRegister(m.Pages, m.Jobs, m.Vectors, m.Fetches, m.FetchTime)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
