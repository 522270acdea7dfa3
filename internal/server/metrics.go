// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// chatRequestsTotal counts completed lesson requests, partitioned by
	// tutor mode and outcome ("ok" or "error").
	chatRequestsTotal *prometheus.CounterVec

	// pdfRequestsTotal counts completed document requests, partitioned by
	// operation ("upload", "ask", "clear") and outcome.
	pdfRequestsTotal *prometheus.CounterVec

	// sessionsActive tracks the number of live PDF sessions.
	sessionsActive prometheus.GaugeFunc

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler name, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic. sessions supplies the live session count
// for the gauge.
func newServerMetrics(reg prometheus.Registerer, sessions func() int) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		chatRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutor",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of lesson requests completed, partitioned by mode and outcome.",
		}, []string{"mode", "outcome"}),

		pdfRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutor",
			Subsystem: "pdf",
			Name:      "requests_total",
			Help:      "Total number of document requests completed, partitioned by operation and outcome.",
		}, []string{"operation", "outcome"}),

		sessionsActive: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tutor",
			Subsystem: "pdf",
			Name:      "sessions_active",
			Help:      "Number of users with an indexed document in memory.",
		}, func() float64 { return float64(sessions()) }),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutor",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tutor",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// instrument wraps a handler with request counting and latency observation
// under the given handler name.
func (s *Server) instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r)

		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
	})
}
