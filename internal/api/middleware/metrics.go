// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// routeUnmatched labels requests that did not hit a registered route, so
// scanners probing random paths cannot blow up label cardinality.
const routeUnmatched = "unmatched"

var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamreaper_http_requests_total",
		Help: "Admin API requests by route and status code",
	}, []string{"method", "route", "code"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streamreaper_http_request_duration_seconds",
		Help:    "Admin API request latency",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 10, 30},
	}, []string{"method", "route"})

	apiRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamreaper_http_requests_in_flight",
		Help: "Admin API requests currently being served",
	})
)

// Metrics records request counts and latency labelled by chi route pattern.
// A manual sweep holds its request open for the whole sweep, hence the wide buckets.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiRequestsInFlight.Inc()
			defer apiRequestsInFlight.Dec()

			sw := &statusWriter{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(sw, r)

			route := routePattern(r)
			apiRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			apiRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.Status())).Inc()
		})
	}
}

// routePattern is read after the handler ran; chi fills the pattern while routing.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return routeUnmatched
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Status returns the written status, 200 if the handler never wrote one.
func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
