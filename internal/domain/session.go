package domain

import "time"

// SessionID identifies one connected client for the lifetime of its connection.
type SessionID string

func (id SessionID) String() string { return string(id) }

// Location is the last position a session published.
// Timestamp is milliseconds since the Unix epoch, kept exactly as the client sent it.
type Location struct {
	Latitude  float64
	Longitude float64
	Timestamp float64
}

// Millis converts t to a wire timestamp.
func Millis(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// Session is a point-in-time copy of a registry entry.
// Location is nil until the client publishes its first position.
type Session struct {
	ID       SessionID
	Location *Location
}

// LocationRecord is the wire shape of a located session: {id, lat, lon, ts}.
// TS is milliseconds since the Unix epoch and may carry a fraction.
type LocationRecord struct {
	ID  SessionID `json:"id"`
	Lat float64   `json:"lat"`
	Lon float64   `json:"lon"`
	TS  float64   `json:"ts"`
}

// NewLocationRecord flattens a session's location into its wire shape.
func NewLocationRecord(id SessionID, loc Location) LocationRecord {
	return LocationRecord{
		ID:  id,
		Lat: loc.Latitude,
		Lon: loc.Longitude,
		TS:  loc.Timestamp,
	}
}
