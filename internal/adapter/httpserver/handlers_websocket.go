package httpserver

import (
	"log/slog"

	apperrors "github.com/Sohum-Nikam/RealTime-Trakcer/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

// handleWebSocket admits the connection against the limits and hands it to the
// WebSocket handler, which blocks for the lifetime of the connection.
func (s *Server) handleWebSocket(c echo.Context) error {
	ip := c.RealIP()

	if s.limits != nil {
		ok, reason := s.limits.Acquire(ip)
		if !ok {
			s.websocketMetrics.Rejected(string(reason))
			return rejection(reason).WithContext("remote_ip", ip)
		}
		defer s.limits.Release(ip)
	}

	slog.DebugContext(c.Request().Context(), "Upgrading WebSocket connection", "remote_ip", ip)
	s.websocketHandler.ServeHTTP(c.Response(), c.Request())
	return nil
}

func rejection(reason LimitReason) *apperrors.Error {
	switch reason {
	case LimitReasonGlobal:
		return apperrors.UnavailableError("server at connection capacity", nil).
			WithContext("reason", string(reason))
	default:
		return apperrors.RateLimitedError("too many connections").
			WithContext("reason", string(reason))
	}
}
