// Package metrics owns the Prometheus collectors exposed on /metrics.
//
// Nothing is registered until Register runs; before that the recording
// helpers are no-ops, so a server with metrics disabled never touches the
// default registry.
package metrics

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce    sync.Once
	registered      atomic.Bool
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	commentActions  *prometheus.CounterVec
)

// Register initialises the collectors and adds them to the default
// registry. It is safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"route", "method", "status"})

		requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency distribution of API requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"route", "method"})

		commentActions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comment_actions_total",
			Help: "Comment actions applied, by action.",
		}, []string{"action"})

		prometheus.MustRegister(requestsTotal, requestDuration, commentActions)
		registered.Store(true)
	})
}

// Enabled reports whether Register has run.
func Enabled() bool {
	return registered.Load()
}

// ObserveRequest counts one served request and records its latency.
func ObserveRequest(route, method string, status int, d time.Duration) {
	if !Enabled() {
		return
	}
	requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// CountCommentAction counts one applied comment action.
func CountCommentAction(action string) {
	if !Enabled() {
		return
	}
	commentActions.WithLabelValues(action).Inc()
}
