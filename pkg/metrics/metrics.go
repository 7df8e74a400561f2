// Package metrics exposes Prometheus metrics for investigations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DEV-EVIIL/INSTA-INFO/pkg/httpcache"
)

const namespace = "instainfo"

// Collector records investigation and lookup outcomes. A nil *Collector is
// valid and records nothing.
type Collector struct {
	registry              *prometheus.Registry
	investigationDuration *prometheus.HistogramVec
	investigationTotal    *prometheus.CounterVec
	lookupTotal           *prometheus.CounterVec
	lookupAttempts        prometheus.Counter
}

// New constructs a collector with its own registry.
func New() (*Collector, error) {
	registry := prometheus.NewRegistry()

	investigationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "investigation",
		Name:      "duration_seconds",
		Help:      "Latency distribution of investigations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})

	investigationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "investigation",
		Name:      "total",
		Help:      "Total number of investigations by outcome.",
	}, []string{"outcome"})

	lookupTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lookup",
		Name:      "results_total",
		Help:      "Contact lookups by result.",
	}, []string{"result"})

	lookupAttempts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lookup",
		Name:      "attempts_total",
		Help:      "HTTP attempts made by contact lookups, retries included.",
	})

	cacheHits := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http_cache",
		Name:      "hits_total",
		Help:      "HTTP cache hits.",
	}, func() float64 { return float64(httpcache.CacheStats().Hits) })

	cacheMisses := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http_cache",
		Name:      "misses_total",
		Help:      "HTTP cache misses.",
	}, func() float64 { return float64(httpcache.CacheStats().Misses) })

	for _, c := range []prometheus.Collector{
		investigationDuration, investigationTotal, lookupTotal, lookupAttempts, cacheHits, cacheMisses,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:              registry,
		investigationDuration: investigationDuration,
		investigationTotal:    investigationTotal,
		lookupTotal:           lookupTotal,
		lookupAttempts:        lookupAttempts,
	}, nil
}

// Handler returns an HTTP handler exposing the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveInvestigation records one finished investigation.
func (c *Collector) ObserveInvestigation(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.investigationTotal.WithLabelValues(outcome).Inc()
	c.investigationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveLookup records one contact lookup and the attempts it took.
func (c *Collector) ObserveLookup(result string, attempts int) {
	if c == nil {
		return
	}
	c.lookupTotal.WithLabelValues(result).Inc()
	c.lookupAttempts.Add(float64(attempts))
}
