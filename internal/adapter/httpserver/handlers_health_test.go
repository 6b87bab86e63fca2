package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/domain"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/platform/version"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/presence"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthOK(_ context.Context) (any, error) { return nil, nil }

func healthErr(msg string) func(context.Context) (any, error) {
	return func(_ context.Context) (any, error) { return nil, errors.New(msg) }
}

type stubStats struct {
	stats presence.Stats
	err   error
}

func (s stubStats) Stats() (presence.Stats, error) { return s.stats, s.err }

func TestHandleLiveness(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	srv, clock := newTestServer(t)
	clock.Advance(90 * time.Second)

	err := srv.handleLiveness(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","uptime":90}`, rec.Body.String())
}

func TestHandleReadiness_AllHealthy(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	srv, _ := newTestServer(t, withHealthChecks(
		PresenceCheck(stubStats{stats: presence.Stats{Connected: 3, Located: 2}}),
		HealthCheck{Name: "config", Check: healthOK},
	))

	err := srv.handleReadiness(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"status": "ready",
		"checks": {
			"broadcaster": {"status": "ok", "details": {"connected_sessions": 3, "located_sessions": 2}},
			"config": {"status": "ok"}
		}
	}`, rec.Body.String())
}

func TestHandleReadiness_NoChecks(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	srv, _ := newTestServer(t)

	require.NoError(t, srv.handleReadiness(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{}}`, rec.Body.String())
}

func TestHandleReadiness_BroadcasterDown(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	srv, _ := newTestServer(t, withHealthChecks(
		PresenceCheck(stubStats{err: errors.New("broadcaster stopped")}),
		HealthCheck{Name: "config", Check: healthOK},
	))

	err := srv.handleReadiness(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{
		"status": "unhealthy",
		"checks": {
			"broadcaster": {"status": "error", "error": "broadcaster stopped"},
			"config": {"status": "ok"}
		}
	}`, rec.Body.String())
}

func TestHandleReadiness_RunsEveryCheck(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var ran []string
	track := func(name string, err error) HealthCheck {
		return HealthCheck{Name: name, Check: func(_ context.Context) (any, error) {
			ran = append(ran, name)
			return nil, err
		}}
	}
	srv, _ := newTestServer(t, withHealthChecks(
		track("first", errors.New("down")),
		track("second", nil),
	))

	require.NoError(t, srv.handleReadiness(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, []string{"first", "second"}, ran)
}

func TestPresenceCheck_StoppedBroadcaster(t *testing.T) {
	b := presence.NewBroadcaster(presence.Options{})
	b.Stop()

	details, err := PresenceCheck(b).Check(context.Background())

	require.ErrorIs(t, err, domain.ErrBroadcasterStopped)
	assert.Nil(t, details)
}

func TestHandleReadiness_PassesDeadline(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var hadDeadline bool
	srv, _ := newTestServer(t, withHealthChecks(HealthCheck{Name: "deadline", Check: func(ctx context.Context) (any, error) {
		_, hadDeadline = ctx.Deadline()
		return nil, nil
	}}))

	require.NoError(t, srv.handleReadiness(c))
	assert.True(t, hadDeadline)
}

func TestHandleVersion(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	srv, _ := newTestServer(t)

	err := srv.handleVersion(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var info version.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, version.Service, info.Service)
	assert.NotEmpty(t, info.GoVersion)
}
