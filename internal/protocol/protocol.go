package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/domain"
)

// Envelope is a single named event with an optional payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// LocationPayload is a validated send-location payload.
// Timestamp is nil when the client did not send a usable ts.
type LocationPayload struct {
	Latitude  float64
	Longitude float64
	Timestamp *float64
}

type rawLocation struct {
	Lat any `json:"lat"`
	Lon any `json:"lon"`
	TS  any `json:"ts"`
}

// Encode marshals an outbound event. A nil data omits the payload.
func Encode(event string, data any) ([]byte, error) {
	env := Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", event, err)
		}
		env.Data = raw
	}

	frame, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", event, err)
	}
	return frame, nil
}

// Decode parses an inbound frame into its envelope.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", domain.ErrMalformedRequest, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event name", domain.ErrMalformedRequest)
	}
	return env, nil
}

// DecodeLocation validates a send-location payload.
// lat and lon must both be JSON numbers. ts is kept verbatim when it is a
// number a float64 can hold; anything else is treated as absent.
func DecodeLocation(data json.RawMessage) (LocationPayload, error) {
	if len(data) == 0 {
		return LocationPayload{}, fmt.Errorf("%w: empty location payload", domain.ErrMalformedRequest)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw rawLocation
	if err := dec.Decode(&raw); err != nil {
		return LocationPayload{}, fmt.Errorf("%w: %w", domain.ErrMalformedRequest, err)
	}

	lat, ok := number(raw.Lat)
	if !ok {
		return LocationPayload{}, fmt.Errorf("%w: lat is not a number", domain.ErrMalformedRequest)
	}
	lon, ok := number(raw.Lon)
	if !ok {
		return LocationPayload{}, fmt.Errorf("%w: lon is not a number", domain.ErrMalformedRequest)
	}

	payload := LocationPayload{Latitude: lat, Longitude: lon}
	if ts, ok := number(raw.TS); ok {
		payload.Timestamp = &ts
	}
	return payload, nil
}

// number accepts only JSON numbers that parse to a finite float64.
func number(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
