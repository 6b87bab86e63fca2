// Package protocol encodes and decodes the WebSocket event contract.
//
// Every frame is a JSON envelope {"event": name, "data": payload}. Event names and
// payload shapes are fixed by the map clients; see domain/events.go for the names.
package protocol
