package metrics

import "github.com/prometheus/client_golang/prometheus"

// Drop reasons for PresenceMetrics.DroppedRequests.
const (
	DropReasonUnknownSession = "unknown_session"
	DropReasonInvalidCoords  = "invalid_coordinates"
	DropReasonStopped        = "stopped"
)

// PresenceMetrics holds Prometheus metrics for the presence registry.
// All methods are safe to call on a nil receiver so the broadcaster can run without metrics.
type PresenceMetrics struct {
	ConnectedSessions prometheus.Gauge
	LocatedSessions   prometheus.Gauge
	BroadcastsTotal   *prometheus.CounterVec
	DroppedRequests   *prometheus.CounterVec
	EvictedSessions   prometheus.Counter
}

// NewPresenceMetrics creates and registers presence metrics on the given registry.
func NewPresenceMetrics(reg prometheus.Registerer) *PresenceMetrics {
	m := &PresenceMetrics{
		ConnectedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "connected_sessions",
			Help:      "Number of sessions currently in the registry.",
		}),
		LocatedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "located_sessions",
			Help:      "Number of registered sessions with a known location.",
		}),
		BroadcastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "broadcasts_total",
			Help:      "Total number of fan-outs by event.",
		}, []string{"event"}),
		DroppedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "dropped_requests_total",
			Help:      "Total number of requests dropped without effect, by reason.",
		}, []string{"reason"}),
		EvictedSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "evicted_sessions_total",
			Help:      "Total number of sessions evicted because a send to them failed.",
		}),
	}

	reg.MustRegister(m.ConnectedSessions, m.LocatedSessions, m.BroadcastsTotal, m.DroppedRequests, m.EvictedSessions)
	return m
}

// SetSessions records the connected and located session counts. Nil-safe.
func (m *PresenceMetrics) SetSessions(connected, located int) {
	if m == nil {
		return
	}
	m.ConnectedSessions.Set(float64(connected))
	m.LocatedSessions.Set(float64(located))
}

// Broadcast counts one fan-out of the given event. Nil-safe.
func (m *PresenceMetrics) Broadcast(event string) {
	if m == nil {
		return
	}
	m.BroadcastsTotal.WithLabelValues(event).Inc()
}

// Dropped counts a request discarded for the given reason. Nil-safe.
func (m *PresenceMetrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.DroppedRequests.WithLabelValues(reason).Inc()
}

// Evicted counts a session removed after a failed send. Nil-safe.
func (m *PresenceMetrics) Evicted() {
	if m == nil {
		return
	}
	m.EvictedSessions.Inc()
}
