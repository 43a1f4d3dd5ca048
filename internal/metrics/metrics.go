// Package metrics exposes powerwatch counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scienceol/powerwatch/internal/power"
)

// Metrics records power event deliveries, shutdown interest and relay
// outcomes. It satisfies power.Recorder and relay.Recorder.
type Metrics struct {
	registry  *prometheus.Registry
	delivered *prometheus.CounterVec
	listeners *prometheus.GaugeVec
	interest  prometheus.Gauge
	relayed   *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "powerwatch",
			Name:      "events_delivered_total",
			Help:      "Power events delivered, by event name.",
		}, []string{"event"}),
		listeners: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "powerwatch",
			Name:      "event_listeners",
			Help:      "Listeners reached by the last delivery of each event.",
		}, []string{"event"}),
		interest: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "powerwatch",
			Name:      "shutdown_interest",
			Help:      "1 while the platform is told someone listens for shutdown.",
		}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "powerwatch",
			Name:      "relay_queries_total",
			Help:      "Relayed end-session queries, by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.delivered, m.listeners, m.interest, m.relayed)
	return m
}

// EventDelivered implements power.Recorder.
func (m *Metrics) EventDelivered(name power.EventName, listeners int) {
	m.delivered.WithLabelValues(string(name)).Inc()
	m.listeners.WithLabelValues(string(name)).Set(float64(listeners))
}

// ShutdownInterest implements power.Recorder.
func (m *Metrics) ShutdownInterest(listening bool) {
	if listening {
		m.interest.Set(1)
		return
	}
	m.interest.Set(0)
}

// RelayQuery records whether a relayed query became a shutdown event.
func (m *Metrics) RelayQuery(delivered bool) {
	outcome := "ignored"
	if delivered {
		outcome = "delivered"
	}
	m.relayed.WithLabelValues(outcome).Inc()
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
