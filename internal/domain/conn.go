package domain

// Conn is the outbound half of a client channel as seen by the presence registry.
type Conn interface {
	// Send queues an encoded frame without blocking.
	// Returns false if the frame could not be queued (buffer full or connection gone).
	Send(frame []byte) bool
	// Close tears the connection down. Safe to call more than once.
	Close()
	// CloseGraceful sends a close frame carrying reason before closing.
	CloseGraceful(reason string)
}
