package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestFeedMetrics_ConnectionGauge(t *testing.T) {
	m := NewFeedMetrics(prometheus.NewRegistry())

	m.ConnectionOpened("websocket")
	m.ConnectionOpened("websocket")
	m.ConnectionOpened("sse")
	m.ConnectionClosed("websocket")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveConnections.WithLabelValues("websocket")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveConnections.WithLabelValues("sse")))
}

func TestNewFeedMetrics_RegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFeedMetrics(reg)
	m.EnvelopesBroadcast.WithLabelValues("plantAdded").Inc()
	m.InboundMessages.WithLabelValues("malformed").Inc()
	m.FeedEvents.WithLabelValues("insert").Inc()
	m.ActiveConnections.WithLabelValues("websocket").Set(0)

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 6, count)
}
