// Package metrics exposes Prometheus instrumentation for gateway sends.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values besides the gateway error kinds
const (
	OutcomeSuccess = "success"
	OutcomeStale   = "stale"
)

// Metrics holds the collectors for one controller
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	rejected *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aleyya_gateway_requests_total",
			Help: "Gateway sends by model and outcome",
		}, []string{"model", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aleyya_gateway_request_duration_seconds",
			Help:    "Gateway send latency",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"model"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aleyya_gateway_in_flight",
			Help: "1 while a send is outstanding",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aleyya_send_rejected_total",
			Help: "Send attempts refused before dispatch, by reason",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.inFlight, m.rejected)
	}
	return m
}

// ObserveSend records a completed send. Nil receivers are ignored.
func (m *Metrics) ObserveSend(model, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(model, outcome).Inc()
	m.duration.WithLabelValues(model).Observe(d.Seconds())
}

// SetInFlight flips the in-flight gauge
func (m *Metrics) SetInFlight(sending bool) {
	if m == nil {
		return
	}
	if sending {
		m.inFlight.Set(1)
		return
	}
	m.inFlight.Set(0)
}

// Rejected counts a send refused by a guard
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
