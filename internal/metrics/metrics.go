// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memo"

// Label values
const (
	LblHit   = "hit"
	LblMiss  = "miss"
	LblOK    = "ok"
	LblError = "error"
)

// Metrics owns a private registry so tests and multiple servers do not
// collide on the global one. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	QueryCompile *prometheus.CounterVec
	QueryCache   *prometheus.CounterVec
	SearchTotal  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Counter of HTTP requests by route, method and status.",
			}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Bucketed histogram of HTTP request latency.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16), // 0.5ms ~ 16s
			}, []string{"route", "method"}),
		QueryCompile: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "query",
				Name:      "compile_total",
				Help:      "Counter of search query compilations by result.",
			}, []string{"result"}),
		QueryCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "query",
				Name:      "cache_lookups_total",
				Help:      "Counter of compiled query cache lookups.",
			}, []string{"result"}),
		SearchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notes",
				Name:      "search_total",
				Help:      "Counter of note searches by result.",
			}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.QueryCompile,
		m.QueryCache,
		m.SearchTotal,
	)
	return m
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveCompile(err error) {
	if m == nil {
		return
	}
	m.QueryCompile.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.QueryCache.WithLabelValues(LblHit).Inc()
	} else {
		m.QueryCache.WithLabelValues(LblMiss).Inc()
	}
}

func (m *Metrics) ObserveSearch(err error) {
	if m == nil {
		return
	}
	m.SearchTotal.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return LblError
	}
	return LblOK
}
