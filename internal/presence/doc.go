// Package presence implements the presence registry and fan-out broadcaster.
//
// A single goroutine owns the registry of connected sessions and their last known
// location. Every request (connect, publish, clear, disconnect) travels through one
// command channel and is applied in arrival order, so broadcasts for one session are
// queued to every recipient in the order they were published and a new connection's
// snapshot can never miss an update. Uses single goroutine + command channel (no mutexes).
package presence
