// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "covidmap"

// Metrics holds the counters, histograms and gauges of the tracker.
type Metrics struct {
	FetchRequests  *prometheus.CounterVec // labels: outcome={success,error,empty}
	FetchDuration  prometheus.Histogram
	FeaturesBuilt  prometheus.Gauge
	InvalidRecords prometheus.Counter
	Cache          *prometheus.CounterVec // labels: result={hit,miss}
	Tiles          *prometheus.CounterVec // labels: result={hit,miss,error}
}

// New creates and registers all metrics with the default Prometheus registry.
func New() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.FeaturesBuilt,
		m.InvalidRecords,
		m.Cache,
		m.Tiles,
	)

	return m
}

// NewForTesting creates unregistered metrics to avoid "already registered"
// panics when called from multiple tests.
func NewForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Upstream case-count requests by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Upstream case-count request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FeaturesBuilt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "features_built",
			Help:      "Number of features in the last built collection.",
		}),
		InvalidRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_records_total",
			Help:      "Records that failed validation.",
		}),
		Cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_total",
			Help:      "Snapshot cache lookups by result.",
		}, []string{"result"}),
		Tiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tiles_total",
			Help:      "Tile proxy requests by result.",
		}, []string{"result"}),
	}
}
