package relay

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the relay's Prometheus instruments.
type Metrics struct {
	gatherer prometheus.Gatherer

	ConnectedPeers prometheus.Gauge
	Registrations  prometheus.Counter
	Events         *prometheus.CounterVec
	DroppedFrames  prometheus.Counter
}

// NewMetrics registers the relay instruments on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		ConnectedPeers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "chatsync",
			Subsystem: "relay",
			Name:      "connected_peers",
			Help:      "Number of websocket peers currently connected.",
		}),
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chatsync",
			Subsystem: "relay",
			Name:      "registrations_total",
			Help:      "Number of successful user registrations.",
		}),
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatsync",
			Subsystem: "relay",
			Name:      "events_total",
			Help:      "Number of inbound events handled, by type.",
		}, []string{"type"}),
		DroppedFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chatsync",
			Subsystem: "relay",
			Name:      "dropped_frames_total",
			Help:      "Number of outbound frames dropped because a peer queue was full.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
