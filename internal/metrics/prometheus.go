// Package metrics exports pipeline and HTTP metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voice-relay/internal/application"
)

// Metrics contains all Prometheus metrics for the relay
type Metrics struct {
	// Pipeline metrics
	Requests        *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	StateDuration   *prometheus.HistogramVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers all metrics on reg. A fresh registry keeps tests isolated
// from the global default.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_pipeline_requests_total",
			Help: "Pipeline requests by outcome kind",
		}, []string{"outcome"}),
		RequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_pipeline_duration_seconds",
			Help:    "End-to-end pipeline duration",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		StateDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_pipeline_state_duration_seconds",
			Help:    "Time spent in each pipeline state",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"state"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		gatherer: reg,
	}
}

func (m *Metrics) ObserveState(state application.State, elapsed time.Duration) {
	m.StateDuration.WithLabelValues(state.String()).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveOutcome(kind application.Kind, elapsed time.Duration) {
	outcome := "success"
	if kind != "" {
		outcome = string(kind)
	}
	m.Requests.WithLabelValues(outcome).Inc()
	m.RequestDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
