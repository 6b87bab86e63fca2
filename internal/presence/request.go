package presence

import "github.com/Sohum-Nikam/RealTime-Trakcer/internal/domain"

// command is anything the broadcaster goroutine accepts on its channel.
type command interface{ isCommand() }

// Request is the closed set of client-driven operations:
// Connect, PublishLocation, ClearMarkers and Disconnect.
type Request interface {
	command
	isRequest()
}

// Connect registers a new connection and sends it the existing-users snapshot.
type Connect struct {
	Conn  domain.Conn
	reply chan connectResult
}

// PublishLocation overwrites the session's location and fans it out to everyone else.
// Timestamp is epoch milliseconds; nil is replaced with the broadcaster's receipt time.
type PublishLocation struct {
	SessionID domain.SessionID
	Latitude  float64
	Longitude float64
	Timestamp *float64
}

// ClearMarkers blanks every session's location and tells every session about it.
type ClearMarkers struct {
	SessionID domain.SessionID
}

// Disconnect removes the session and announces its departure.
type Disconnect struct {
	SessionID domain.SessionID
}

func (Connect) isCommand()         {}
func (Connect) isRequest()         {}
func (PublishLocation) isCommand() {}
func (PublishLocation) isRequest() {}
func (ClearMarkers) isCommand()    {}
func (ClearMarkers) isRequest()    {}
func (Disconnect) isCommand()      {}
func (Disconnect) isRequest()      {}

type connectResult struct {
	id  domain.SessionID
	err error
}

// Stats summarises the registry.
type Stats struct {
	Connected int
	Located   int
}

type sessionsCmd struct {
	reply chan []domain.Session
}

type statsCmd struct {
	reply chan Stats
}

type stopCmd struct{}

func (sessionsCmd) isCommand() {}
func (statsCmd) isCommand()    {}
func (stopCmd) isCommand()     {}
