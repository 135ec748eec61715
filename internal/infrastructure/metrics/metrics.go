// Package metrics holds the Prometheus collectors of the live feed.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "live_feed"

// FeedMetrics tracks connections and envelope fan-out.
type FeedMetrics struct {
	ActiveConnections  *prometheus.GaugeVec
	EnvelopesBroadcast *prometheus.CounterVec
	FramesDelivered    prometheus.Counter
	SendFailures       prometheus.Counter
	InboundMessages    *prometheus.CounterVec
	FeedEvents         *prometheus.CounterVec
}

// NewFeedMetrics creates the collectors and registers them on reg.
func NewFeedMetrics(reg prometheus.Registerer) *FeedMetrics {
	m := &FeedMetrics{
		ActiveConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "active",
			Help:      "Number of open live-update connections by transport.",
		}, []string{"transport"}),
		EnvelopesBroadcast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "envelopes_total",
			Help:      "Envelopes broadcast by envelope type.",
		}, []string{"type"}),
		FramesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "frames_delivered_total",
			Help:      "Frames handed to connections without error.",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "send_failures_total",
			Help:      "Per-connection send failures that removed the connection.",
		}),
		InboundMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inbound",
			Name:      "messages_total",
			Help:      "Client messages by outcome (accepted, malformed).",
		}, []string{"outcome"}),
		FeedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_total",
			Help:      "Change events received from the feed by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.ActiveConnections,
		m.EnvelopesBroadcast,
		m.FramesDelivered,
		m.SendFailures,
		m.InboundMessages,
		m.FeedEvents,
	)
	return m
}

// ConnectionOpened and ConnectionClosed satisfy the registry observer.
func (m *FeedMetrics) ConnectionOpened(transport string) {
	m.ActiveConnections.WithLabelValues(transport).Inc()
}

func (m *FeedMetrics) ConnectionClosed(transport string) {
	m.ActiveConnections.WithLabelValues(transport).Dec()
}
