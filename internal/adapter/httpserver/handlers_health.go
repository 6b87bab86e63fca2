package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/platform/version"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/presence"
	"github.com/labstack/echo/v4"
)

const readinessTimeout = 5 * time.Second

// HealthCheck is a named readiness check. Check returns details to report
// alongside the result; details may be nil.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) (any, error)
}

// PresenceStats is the slice of the broadcaster readiness needs.
type PresenceStats interface {
	Stats() (presence.Stats, error)
}

// PresenceCheck reports the broadcaster as ready when it answers a stats
// request, and includes the session counts it returned.
func PresenceCheck(p PresenceStats) HealthCheck {
	return HealthCheck{
		Name: "broadcaster",
		Check: func(_ context.Context) (any, error) {
			stats, err := p.Stats()
			if err != nil {
				return nil, err
			}
			return map[string]int{
				"connected_sessions": stats.Connected,
				"located_sessions":   stats.Located,
			}, nil
		},
	}
}

type checkResult struct {
	Status  string `json:"status"`
	Details any    `json:"details,omitempty"`
	Error   string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status": "ok",
		"uptime": s.clock.Since(s.startTime).Seconds(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

// handleReadiness runs every check, so a failure in one does not hide the
// state of the others.
func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	response := readinessResponse{Status: "ready", Checks: make(map[string]checkResult, len(s.healthChecks))}
	code := http.StatusOK
	for _, hc := range s.healthChecks {
		details, err := hc.Check(ctx)
		if err != nil {
			response.Checks[hc.Name] = checkResult{Status: "error", Error: err.Error()}
			response.Status = "unhealthy"
			code = http.StatusServiceUnavailable
			continue
		}
		response.Checks[hc.Name] = checkResult{Status: "ok", Details: details}
	}

	if err := c.JSON(code, response); err != nil {
		return fmt.Errorf("failed to write readiness response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
