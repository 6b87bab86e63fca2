package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/adapter/metrics"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
)

// Options wires the server's collaborators. Nil metrics and limits disable those features.
type Options struct {
	Port             string
	WebSocketHandler http.Handler
	Limits           *ConnectionLimits
	MetricsHandler   http.Handler
	HTTPMetrics      *metrics.HTTPMetrics
	WebSocketMetrics *metrics.WebSocketMetrics
	HealthChecks     []HealthCheck
	Clock            clockwork.Clock
}

type Server struct {
	echo *echo.Echo
	port string

	websocketHandler http.Handler
	metricsHandler   http.Handler
	limits           *ConnectionLimits

	httpMetrics      *metrics.HTTPMetrics
	websocketMetrics *metrics.WebSocketMetrics

	healthChecks []HealthCheck
	clock        clockwork.Clock
	startTime    time.Time
}

func NewServer(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:             e,
		port:             opts.Port,
		websocketHandler: opts.WebSocketHandler,
		metricsHandler:   opts.MetricsHandler,
		limits:           opts.Limits,
		httpMetrics:      opts.HTTPMetrics,
		websocketMetrics: opts.WebSocketMetrics,
		healthChecks:     opts.HealthChecks,
		clock:            opts.Clock,
		startTime:        opts.Clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Start blocks serving HTTP until Shutdown. It returns http.ErrServerClosed (wrapped) after a clean shutdown.
func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.port)
	if err := s.echo.Start(":" + s.port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests. Hijacked WebSocket connections are not
// touched; the broadcaster closes them.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP exposes the router, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
