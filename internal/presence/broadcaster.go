package presence

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/adapter/metrics"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/domain"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/protocol"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	commandBufferSize = 256
	commandTimeout    = 5 * time.Second  // request/reply calls
	stopTimeout       = 10 * time.Second // graceful shutdown
	shutdownReason    = "Server shutting down"
)

// Options configures a Broadcaster. Zero values are usable.
type Options struct {
	Clock clockwork.Clock
	// AnnounceConnect sends user-connected to existing sessions when a client connects,
	// before it has published a location.
	AnnounceConnect bool
	Metrics         *metrics.PresenceMetrics
	// NewSessionID overrides the id generator (random UUIDs).
	NewSessionID func() domain.SessionID
}

// Broadcaster owns the presence registry and fans changes out to connected sessions.
type Broadcaster struct {
	cmdCh           chan command
	done            chan struct{}
	stopOnce        sync.Once
	clock           clockwork.Clock
	registry        *registry
	announceConnect bool
	metrics         *metrics.PresenceMetrics
	newSessionID    func() domain.SessionID
}

// NewBroadcaster creates a broadcaster and starts its goroutine.
func NewBroadcaster(opts Options) *Broadcaster {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.NewSessionID == nil {
		opts.NewSessionID = func() domain.SessionID { return domain.SessionID(uuid.NewString()) }
	}

	b := &Broadcaster{
		cmdCh:           make(chan command, commandBufferSize),
		done:            make(chan struct{}),
		clock:           opts.Clock,
		registry:        newRegistry(),
		announceConnect: opts.AnnounceConnect,
		metrics:         opts.Metrics,
		newSessionID:    opts.NewSessionID,
	}
	go b.run()
	return b
}

// Connect registers conn as a new session and queues the existing-users snapshot on it.
// Every broadcast handled after the snapshot is queued reaches the new session.
func (b *Broadcaster) Connect(conn domain.Conn) (domain.SessionID, error) {
	reply := make(chan connectResult, 1)
	if !b.submit(Connect{Conn: conn, reply: reply}) {
		return "", domain.ErrBroadcasterStopped
	}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case res := <-reply:
		return res.id, res.err
	case <-b.done:
		return "", domain.ErrBroadcasterStopped
	case <-timer.Chan():
		return "", fmt.Errorf("connect command timed out after %v", commandTimeout)
	}
}

// Dispatch queues a request without waiting for it to be applied.
// Requests submitted after Stop are dropped.
func (b *Broadcaster) Dispatch(req Request) {
	if !b.submit(req) {
		b.metrics.Dropped(metrics.DropReasonStopped)
	}
}

// PublishLocation records a new position for id. A nil ts means "now".
func (b *Broadcaster) PublishLocation(id domain.SessionID, latitude, longitude float64, ts *float64) {
	b.Dispatch(PublishLocation{SessionID: id, Latitude: latitude, Longitude: longitude, Timestamp: ts})
}

// ClearMarkers wipes every session's location on behalf of id.
func (b *Broadcaster) ClearMarkers(id domain.SessionID) {
	b.Dispatch(ClearMarkers{SessionID: id})
}

// Disconnect removes id from the registry. Calling it twice is harmless.
func (b *Broadcaster) Disconnect(id domain.SessionID) {
	b.Dispatch(Disconnect{SessionID: id})
}

// Sessions returns a copy of the registry, sorted by session id.
func (b *Broadcaster) Sessions() ([]domain.Session, error) {
	reply := make(chan []domain.Session, 1)
	if !b.submit(sessionsCmd{reply: reply}) {
		return nil, domain.ErrBroadcasterStopped
	}
	return awaitReply(b, reply, "sessions")
}

// Stats returns registry counts. Doubles as a liveness check of the broadcaster goroutine.
func (b *Broadcaster) Stats() (Stats, error) {
	reply := make(chan Stats, 1)
	if !b.submit(statsCmd{reply: reply}) {
		return Stats{}, domain.ErrBroadcasterStopped
	}
	return awaitReply(b, reply, "stats")
}

// Stop closes every connection with a close frame and stops the goroutine.
// Blocks until the goroutine has exited or the stop timeout is reached.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		if !b.submit(stopCmd{}) {
			return
		}

		timeout := b.clock.NewTimer(stopTimeout)
		defer timeout.Stop()

		select {
		case <-b.done:
			slog.Info("Broadcaster stopped gracefully")
		case <-timeout.Chan():
			slog.Warn("Broadcaster stop timeout exceeded", "timeout", stopTimeout)
		}
	})
}

func awaitReply[T any](b *Broadcaster, reply <-chan T, name string) (T, error) {
	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-b.done:
		return zero, domain.ErrBroadcasterStopped
	case <-timer.Chan():
		return zero, fmt.Errorf("%s command timed out after %v", name, commandTimeout)
	}
}

// submit never blocks once the goroutine has exited.
func (b *Broadcaster) submit(cmd command) bool {
	select {
	case <-b.done:
		return false
	default:
	}

	select {
	case b.cmdCh <- cmd:
		return true
	case <-b.done:
		return false
	}
}

func (b *Broadcaster) run() {
	defer close(b.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Broadcaster panic recovered", "panic", r)
			b.closeAll("broadcaster panic")
		}
	}()

	for {
		cmd := <-b.cmdCh
		switch c := cmd.(type) {
		case Request:
			b.handle(c)
		case sessionsCmd:
			c.reply <- b.registry.sessions()
		case statsCmd:
			c.reply <- b.registry.stats()
		case stopCmd:
			b.handleStop()
			return
		default:
			slog.Warn("Broadcaster received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

// handle applies one client request. Every request variant is listed here.
func (b *Broadcaster) handle(req Request) {
	switch r := req.(type) {
	case Connect:
		b.handleConnect(r)
	case PublishLocation:
		b.handlePublishLocation(r)
	case ClearMarkers:
		b.handleClearMarkers(r)
	case Disconnect:
		b.handleDisconnect(r)
	default:
		slog.Warn("Broadcaster received unknown request type", "request_type", fmt.Sprintf("%T", req))
	}

	stats := b.registry.stats()
	b.metrics.SetSessions(stats.Connected, stats.Located)
}

func (b *Broadcaster) handleConnect(c Connect) {
	id := b.newSessionID()
	for b.registry.has(id) {
		id = b.newSessionID()
	}

	frame, err := protocol.Encode(domain.EventExistingUsers, b.registry.snapshot())
	if err != nil {
		slog.Error("Failed to encode snapshot", "session_id", id, "error", err)
		c.Conn.Close()
		c.respond(connectResult{err: fmt.Errorf("encode snapshot: %w", err)})
		return
	}
	if !c.Conn.Send(frame) {
		slog.Warn("Rejecting client: snapshot could not be queued", "session_id", id)
		c.Conn.Close()
		c.respond(connectResult{err: fmt.Errorf("queue snapshot: %w", domain.ErrSendFailed)})
		return
	}

	b.registry.add(id, c.Conn)
	slog.Info("User connected", "session_id", id, "total_sessions", len(b.registry.entries))
	c.respond(connectResult{id: id})

	if b.announceConnect {
		b.fanOut(domain.EventUserConnected, id, id)
	}
}

func (c Connect) respond(res connectResult) {
	if c.reply != nil {
		c.reply <- res
	}
}

func (b *Broadcaster) handlePublishLocation(p PublishLocation) {
	if !isFinite(p.Latitude) || !isFinite(p.Longitude) {
		slog.Debug("Dropping location with invalid coordinates", "session_id", p.SessionID)
		b.metrics.Dropped(metrics.DropReasonInvalidCoords)
		return
	}

	ts := domain.Millis(b.clock.Now())
	if p.Timestamp != nil && isFinite(*p.Timestamp) {
		ts = *p.Timestamp
	}
	loc := domain.Location{Latitude: p.Latitude, Longitude: p.Longitude, Timestamp: ts}

	if !b.registry.setLocation(p.SessionID, loc) {
		slog.Debug("Dropping location for unknown session", "session_id", p.SessionID)
		b.metrics.Dropped(metrics.DropReasonUnknownSession)
		return
	}

	b.fanOut(domain.EventReceiveLocation, domain.NewLocationRecord(p.SessionID, loc), p.SessionID)
}

func (b *Broadcaster) handleClearMarkers(c ClearMarkers) {
	if !b.registry.has(c.SessionID) {
		slog.Debug("Dropping clear-markers from unknown session", "session_id", c.SessionID)
		b.metrics.Dropped(metrics.DropReasonUnknownSession)
		return
	}

	cleared := b.registry.clearLocations()
	slog.Info("Markers cleared", "session_id", c.SessionID, "cleared_locations", cleared)

	b.fanOut(domain.EventClearMarkers, nil, "")
}

func (b *Broadcaster) handleDisconnect(d Disconnect) {
	if _, ok := b.registry.remove(d.SessionID); !ok {
		slog.Debug("Disconnect for unknown session", "session_id", d.SessionID)
		return
	}

	slog.Info("User disconnected", "session_id", d.SessionID, "remaining_sessions", len(b.registry.entries))
	b.fanOut(domain.EventUserDisconnected, d.SessionID, "")
}

// fanOut encodes the event once and queues it on every session except skip.
// Sessions that cannot take the frame are evicted after the loop; the rest still get it.
func (b *Broadcaster) fanOut(event string, data any, skip domain.SessionID) {
	frame, err := protocol.Encode(event, data)
	if err != nil {
		slog.Error("Failed to encode broadcast", "event", event, "error", err)
		return
	}
	b.metrics.Broadcast(event)

	var unreachable []domain.SessionID
	for id, conn := range b.registry.recipients(skip) {
		if !conn.Send(frame) {
			unreachable = append(unreachable, id)
		}
	}

	for _, id := range unreachable {
		b.evict(id)
	}
}

func (b *Broadcaster) evict(id domain.SessionID) {
	conn, ok := b.registry.remove(id)
	if !ok {
		// Already evicted by a nested fan-out.
		return
	}

	slog.Warn("Evicting unreachable session", "session_id", id)
	b.metrics.Evicted()
	conn.Close()

	b.fanOut(domain.EventUserDisconnected, id, "")
}

func (b *Broadcaster) handleStop() {
	slog.Info("Broadcaster shutting down", "sessions", len(b.registry.entries))
	closed := b.closeAll(shutdownReason)
	b.metrics.SetSessions(0, 0)
	slog.Info("Broadcaster shutdown complete", "disconnected_clients", closed)
}

// closeAll closes every registered connection with the given reason.
// Used during panic recovery and graceful shutdown. Closes run concurrently,
// so the whole pass is bounded by one write deadline.
func (b *Broadcaster) closeAll(reason string) int {
	conns := b.registry.drain()
	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn.CloseGraceful(reason)
		}()
	}
	wg.Wait()
	return len(conns)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
