package websocket

import (
	"testing"

	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/domain"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/presence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest_SendLocation(t *testing.T) {
	req, err := decodeRequest("s1", []byte(`{"event":"send-location","data":{"lat":52.5,"lon":13.4,"ts":1700000000000}}`))
	require.NoError(t, err)

	publish, ok := req.(presence.PublishLocation)
	require.True(t, ok, "expected PublishLocation, got %T", req)
	assert.Equal(t, domain.SessionID("s1"), publish.SessionID)
	assert.Equal(t, 52.5, publish.Latitude)
	assert.Equal(t, 13.4, publish.Longitude)
	require.NotNil(t, publish.Timestamp)
	assert.Equal(t, 1700000000000.0, *publish.Timestamp)
}

func TestDecodeRequest_SendLocationWithoutTimestamp(t *testing.T) {
	req, err := decodeRequest("s1", []byte(`{"event":"send-location","data":{"lat":1,"lon":2}}`))
	require.NoError(t, err)

	publish := req.(presence.PublishLocation)
	assert.Nil(t, publish.Timestamp)
}

func TestDecodeRequest_ClearMarkers(t *testing.T) {
	req, err := decodeRequest("s2", []byte(`{"event":"clear-markers"}`))
	require.NoError(t, err)
	assert.Equal(t, presence.ClearMarkers{SessionID: "s2"}, req)
}

func TestDecodeRequest_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"not json", `hello`},
		{"missing event", `{"data":{"lat":1,"lon":2}}`},
		{"unknown event", `{"event":"existing-users","data":[]}`},
		{"location without payload", `{"event":"send-location"}`},
		{"lat as string", `{"event":"send-location","data":{"lat":"1","lon":2}}`},
		{"missing lon", `{"event":"send-location","data":{"lat":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeRequest("s1", []byte(tt.frame))
			assert.ErrorIs(t, err, domain.ErrMalformedRequest)
		})
	}
}
