// Package prometheus exposes the service metrics: HTTP request counts and
// latencies, store round-trips, and normalization throughput.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the metric vectors and the /metrics handler.
type Collector struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	storeRequests *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	curiesTotal   prometheus.Counter
	curiesMissed  prometheus.Counter
}

// NewCollector registers the service metrics on a dedicated registry so that
// tests can construct collectors without global-registration collisions.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())

	c := &Collector{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodenorm_http_requests_total",
			Help: "HTTP requests by route, method, and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nodenorm_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		storeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodenorm_store_requests_total",
			Help: "Store operations by store name, operation, and outcome.",
		}, []string{"store", "op", "outcome"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nodenorm_store_request_duration_seconds",
			Help:    "Store round-trip latency by store name.",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"store"}),
		curiesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodenorm_curies_total",
			Help: "CURIEs submitted for normalization.",
		}),
		curiesMissed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodenorm_curies_missed_total",
			Help: "CURIEs with no clique in the stores.",
		}),
	}

	reg.MustRegister(
		c.httpRequests, c.httpDuration,
		c.storeRequests, c.storeDuration,
		c.curiesTotal, c.curiesMissed,
	)
	return c
}

// Handler returns the /metrics endpoint handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one completed HTTP request.
func (c *Collector) ObserveHTTP(route, method, code string, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(route, method, code).Inc()
	c.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveStore records one store round-trip.
func (c *Collector) ObserveStore(store, op string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.storeRequests.WithLabelValues(store, op, outcome).Inc()
	c.storeDuration.WithLabelValues(store).Observe(elapsed.Seconds())
}

// CountCuries records a normalization batch: total inputs and store misses.
func (c *Collector) CountCuries(total, missed int) {
	c.curiesTotal.Add(float64(total))
	c.curiesMissed.Add(float64(missed))
}
