// Package metrics wires prometheus/client_golang into each binary's
// /metrics endpoint (spec.md's ambient observability stack, carried over
// from the teacher even though the distilled spec doesn't itself call out
// a metrics endpoint). Request counts and latencies are recorded by
// wrapping each service's mux once in main, rather than touching every
// handler individually.
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
	// RequestsTotal counts every HTTP request handled, labeled by service,
	// route, method, and final status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradeledger_http_requests_total",
		Help: "Total HTTP requests handled, by service/path/method/status.",
	}, []string{"service", "path", "method", "status"})

	// RequestDuration observes handler latency per service.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradeledger_http_request_duration_seconds",
		Help:    "HTTP handler latency in seconds, by service.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service"})

	// ElectionsTotal counts front-end leader elections that elected a
	// leader; an election in which no replica answers is not counted.
	ElectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradeledger_frontend_elections_total",
		Help: "Total leader elections by the front-end that elected a leader.",
	})

	// PushDuration observes how long one replica's fan-out push to all
	// peers takes, end to end.
	PushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradeledger_replica_push_duration_seconds",
		Help:    "Time to fan a committed transaction out to every peer.",
		Buckets: prometheus.DefBuckets,
	})
)

// Handler serves the process's registered metrics in the Prometheus
// exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument wraps next so every request it serves is recorded under
// service's label.
func Instrument(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		RequestsTotal.WithLabelValues(service, r.URL.Path, r.Method, strconv.Itoa(sw.status)).Inc()
		RequestDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
