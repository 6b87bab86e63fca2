package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebSocketMetrics holds Prometheus metrics for WebSocket connections.
// Methods are nil-safe, like PresenceMetrics.
type WebSocketMetrics struct {
	ActiveConnections   prometheus.Gauge
	ConnectionsRejected *prometheus.CounterVec
	MalformedFrames     prometheus.Counter
	MessageSendDuration prometheus.Histogram
	PingFailures        prometheus.Counter
}

// NewWebSocketMetrics creates and registers WebSocket metrics on the given registry.
func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of active WebSocket connections.",
		}),
		ConnectionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_rejected_total",
			Help:      "Total WebSocket connections rejected by reason (rate_limit/per_ip_limit/global_limit).",
		}, []string{"reason"}),
		MalformedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "malformed_frames_total",
			Help:      "Total inbound frames dropped because they did not decode to a valid event.",
		}),
		MessageSendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "message_send_duration_seconds",
			Help:      "WebSocket message send duration in seconds.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		}),
		PingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "ping_failures_total",
			Help:      "Total WebSocket ping failures (client not responding).",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.ConnectionsRejected, m.MalformedFrames, m.MessageSendDuration, m.PingFailures)
	return m
}

// Connected counts a newly upgraded connection.
func (m *WebSocketMetrics) Connected() {
	if m == nil {
		return
	}
	m.ActiveConnections.Inc()
}

// Disconnected counts a closed connection.
func (m *WebSocketMetrics) Disconnected() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}

// Rejected counts an upgrade refused for the given reason.
func (m *WebSocketMetrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.ConnectionsRejected.WithLabelValues(reason).Inc()
}

// Malformed counts an inbound frame that failed to decode.
func (m *WebSocketMetrics) Malformed() {
	if m == nil {
		return
	}
	m.MalformedFrames.Inc()
}

// ObserveSend records how long one frame write took.
func (m *WebSocketMetrics) ObserveSend(d time.Duration) {
	if m == nil {
		return
	}
	m.MessageSendDuration.Observe(d.Seconds())
}

// PingFailed counts a keepalive ping that could not be written.
func (m *WebSocketMetrics) PingFailed() {
	if m == nil {
		return
	}
	m.PingFailures.Inc()
}
