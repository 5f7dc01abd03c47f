// Package metrics declares the Prometheus collectors shared by the pipeline
// components and the HTTP middleware that instruments the surface server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Deliveries counts handled broker deliveries by terminal outcome.
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filepilot_consumer_deliveries_total",
			Help: "Broker deliveries handled by the consumer, by outcome.",
		},
		[]string{"outcome"},
	)

	// Reconnects counts broker reconnect attempts.
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filepilot_consumer_reconnects_total",
		Help: "Broker connection attempts after a failure or disconnect.",
	})

	// PersistDuration observes suggestion insert latency.
	PersistDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "filepilot_store_insert_duration_seconds",
		Help:    "Latency of durable suggestion inserts.",
		Buckets: prometheus.DefBuckets,
	})

	// Pushes counts display surface pushes by event and result.
	Pushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filepilot_dispatch_pushes_total",
			Help: "Pushes to the display surface, by event and result.",
		},
		[]string{"event", "result"},
	)

	// GateDenied counts privileged calls rejected by the access gate.
	GateDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filepilot_gate_denied_total",
			Help: "Privileged calls rejected for an unauthorized origin.",
		},
		[]string{"call"},
	)

	// SurfaceClients tracks connected event-stream clients.
	SurfaceClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "filepilot_surface_clients",
		Help: "Display surface clients currently attached to the event stream.",
	})

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filepilot_http_requests_total",
			Help: "HTTP requests served by the surface server.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filepilot_http_request_duration_seconds",
			Help:    "Duration of HTTP requests served by the surface server.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and durations. routePattern resolves the
// label for a request so dynamic segments do not explode cardinality.
func Middleware(routePattern func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			path := r.URL.Path
			if routePattern != nil {
				if pattern := routePattern(r); pattern != "" {
					path = pattern
				}
			}
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer for flushing.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Flush forwards to the wrapped writer so streamed responses are not buffered.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
