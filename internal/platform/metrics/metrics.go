// Package metrics holds process-level Prometheus collectors: HTTP request
// latency and audit pipeline health.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestDuration    *prometheus.HistogramVec
	RequestsInFlight   prometheus.Gauge
	AuditEventsDropped prometheus.Counter
	AuditAppendErrors  prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "proctor_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route pattern, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		RequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "proctor_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		}),
		AuditEventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "proctor_audit_events_dropped_total",
			Help: "Total number of audit events dropped because the publisher buffer was full",
		}),
		AuditAppendErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "proctor_audit_append_errors_total",
			Help: "Total number of audit events the sink failed to store",
		}),
		gatherer: gatherer,
	}
}

// Middleware records request latency labelled by the matched chi route so
// session IDs never become label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) IncAuditDropped() {
	if m == nil {
		return
	}
	m.AuditEventsDropped.Inc()
}

func (m *Metrics) IncAuditAppendErrors() {
	if m == nil {
		return
	}
	m.AuditAppendErrors.Inc()
}
