package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_ServesRuntimeMetrics(t *testing.T) {
	reg := NewRegistry()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPresenceMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPresenceMetrics(reg)

	m.SetSessions(3, 1)
	m.Broadcast("receive-location")
	m.Broadcast("receive-location")
	m.Dropped(DropReasonUnknownSession)
	m.Evicted()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ConnectedSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LocatedSessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BroadcastsTotal.WithLabelValues("receive-location")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedRequests.WithLabelValues(DropReasonUnknownSession)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvictedSessions))
}

func TestPresenceMetrics_NilSafe(t *testing.T) {
	var m *PresenceMetrics

	assert.NotPanics(t, func() {
		m.SetSessions(1, 1)
		m.Broadcast("clear-markers")
		m.Dropped(DropReasonStopped)
		m.Evicted()
	})
}

func TestWebSocketMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebSocketMetrics(reg)

	m.Connected()
	m.Connected()
	m.Disconnected()
	m.Rejected("rate_limit")
	m.Malformed()
	m.PingFailed()
	m.ObserveSend(2 * time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionsRejected.WithLabelValues("rate_limit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MalformedFrames))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PingFailures))
	assert.Equal(t, 1, testutil.CollectAndCount(m.MessageSendDuration))
}

func TestWebSocketMetrics_NilSafe(t *testing.T) {
	var m *WebSocketMetrics

	assert.NotPanics(t, func() {
		m.Connected()
		m.Disconnected()
		m.Rejected("global_limit")
		m.Malformed()
		m.PingFailed()
		m.ObserveSend(time.Millisecond)
	})
}

func TestHTTPMetrics_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/version", func(c echo.Context) error { return c.String(http.StatusOK, "v") })
	e.GET("/health/live", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	for _, path := range []string{"/version", "/health/live"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodGet, "/version", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestsTotal), "health probes are not recorded")
}

func TestHTTPMetrics_Error(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Error("rate_limited")
	m.Error("rate_limited")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("rate_limited")))

	var nilMetrics *HTTPMetrics
	assert.NotPanics(t, func() { nilMetrics.Error("internal") })
}
