package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics uses a per-server registry so tests can build routers freely
// without duplicate-registration panics.
type metrics struct {
	reg      *prometheus.Registry
	requests *prometheus.CounterVec
	scans    *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{reg: prometheus.NewRegistry()}
	m.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rotomd_http_requests_total",
		Help: "HTTP requests by method and status.",
	}, []string{"method", "status"})
	m.scans = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rotomd_scans_total",
		Help: "Registry scans by outcome.",
	}, []string{"outcome"})
	m.reg.MustRegister(m.requests, m.scans)
	return m
}

func (m *metrics) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		m.requests.WithLabelValues(r.Method, strconv.Itoa(ww.status)).Inc()
	})
}

func (m *metrics) observeScan(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.scans.WithLabelValues(outcome).Inc()
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
