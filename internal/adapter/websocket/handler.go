package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/adapter/metrics"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/domain"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/platform/correlation"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/presence"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	maxFrameSize      = 4096
	unavailableReason = "Server unavailable"
	readBufferSize    = 1024
	writeBufferSize   = 1024
)

// Presence is the part of the broadcaster the transport needs.
type Presence interface {
	Connect(conn domain.Conn) (domain.SessionID, error)
	Dispatch(req presence.Request)
}

// Handler upgrades HTTP requests to WebSocket sessions.
type Handler struct {
	presence Presence
	clock    clockwork.Clock
	metrics  *metrics.WebSocketMetrics
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler. checkOrigin may be nil to accept any origin.
func NewHandler(p Presence, checkOrigin func(*http.Request) bool, clock clockwork.Clock, m *metrics.WebSocketMetrics) *Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		presence: p,
		clock:    clock,
		metrics:  m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		slog.WarnContext(ctx, "WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(maxFrameSize)

	cw := newClientWriter(conn, h.clock, h.metrics)
	id, err := h.presence.Connect(cw)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to register WebSocket session", "remote_addr", r.RemoteAddr, "error", err)
		cw.CloseGraceful(unavailableReason)
		return
	}

	h.metrics.Connected()
	defer h.metrics.Disconnected()

	ctx = correlation.WithSessionID(ctx, id.String())
	start := h.clock.Now()
	slog.InfoContext(ctx, "WebSocket connected", "remote_addr", r.RemoteAddr)

	h.readPump(ctx, id, cw)

	h.presence.Dispatch(presence.Disconnect{SessionID: id})
	cw.Close()
	slog.InfoContext(ctx, "WebSocket disconnected", "duration", h.clock.Since(start))
}

// readPump feeds inbound frames to the broadcaster until the connection fails or closes.
func (h *Handler) readPump(ctx context.Context, id domain.SessionID, cw *clientWriter) {
	for {
		_, frame, err := cw.connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.DebugContext(ctx, "WebSocket read error", "error", err)
			}
			return
		}
		cw.touch()

		req, err := decodeRequest(id, frame)
		if err != nil {
			if errors.Is(err, domain.ErrMalformedRequest) {
				h.metrics.Malformed()
			}
			slog.DebugContext(ctx, "Dropping malformed frame", "error", err)
			continue
		}
		h.presence.Dispatch(req)
	}
}
