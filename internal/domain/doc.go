// Package domain defines the core domain types and interfaces.
//
// Sessions, locations and the outbound connection contract live here so that the
// presence core and the transport adapters can share them without importing each other.
package domain
