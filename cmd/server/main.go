package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/adapter/httpserver"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/adapter/metrics"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/adapter/websocket"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/platform/config"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/platform/logging"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/platform/version"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/presence"
	"github.com/jonboulle/clockwork"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runGracefulShutdown(cfg *config.Config, srv *httpserver.Server, broadcaster *presence.Broadcaster) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// Sends a close frame to every open WebSocket.
		broadcaster.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "version", version.Get().String(), "env", cfg.AppEnv, "port", cfg.Port)

	reg := metrics.NewRegistry()
	presenceMetrics := metrics.NewPresenceMetrics(reg)
	websocketMetrics := metrics.NewWebSocketMetrics(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)

	broadcaster := presence.NewBroadcaster(presence.Options{
		Clock:           clock,
		AnnounceConnect: cfg.AnnounceOnConnect,
		Metrics:         presenceMetrics,
	})

	if cfg.AppURL == "" {
		slog.Warn("APP_URL not set, accepting WebSocket connections from any origin")
	}
	wsHandler := websocket.NewHandler(broadcaster, websocket.NewCheckOrigin(cfg.AppURL, cfg.IsDevelopment()), clock, websocketMetrics)

	limits := httpserver.NewConnectionLimits(httpserver.LimitsConfig{
		MaxConnections:      cfg.MaxWebSocketConnections,
		MaxConnectionsPerIP: cfg.MaxConnectionsPerIP,
		ConnectionRate:      cfg.ConnectionRate,
		ConnectionBurst:     cfg.ConnectionBurst,
	}, clock)

	srv := httpserver.NewServer(httpserver.Options{
		Port:             cfg.Port,
		WebSocketHandler: wsHandler,
		Limits:           limits,
		MetricsHandler:   metrics.Handler(reg),
		HTTPMetrics:      httpMetrics,
		WebSocketMetrics: websocketMetrics,
		HealthChecks:     []httpserver.HealthCheck{httpserver.PresenceCheck(broadcaster)},
		Clock:            clock,
	})

	done := runGracefulShutdown(cfg, srv, broadcaster)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
