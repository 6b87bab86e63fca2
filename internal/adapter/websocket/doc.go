// Package websocket adapts gorilla/websocket connections to the presence broadcaster.
//
// Each connection gets a clientWriter (bounded queue + writer goroutine) that the
// broadcaster sees as a domain.Conn, and a read pump that turns inbound frames into
// presence requests. Malformed frames are dropped without a reply.
package websocket
