package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/prometheus"
)

// MetricsMiddleware feeds per-route request counts and latencies to the
// collector. The chi route pattern keeps label cardinality bounded.
type MetricsMiddleware struct {
	collector *prometheus.Collector
}

func NewMetricsMiddleware(collector *prometheus.Collector) *MetricsMiddleware {
	return &MetricsMiddleware{collector: collector}
}

func (m *MetricsMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := newWrappedResponseWriter(w)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		m.collector.ObserveHTTP(route, r.Method, strconv.Itoa(ww.statusCode), time.Since(started))
	})
}
