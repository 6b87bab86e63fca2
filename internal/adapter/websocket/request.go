package websocket

import (
	"fmt"

	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/domain"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/presence"
	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/protocol"
)

// decodeRequest turns an inbound frame from session id into a presence request.
// Any frame that is not a well-formed send-location or clear-markers is an error.
func decodeRequest(id domain.SessionID, frame []byte) (presence.Request, error) {
	env, err := protocol.Decode(frame)
	if err != nil {
		return nil, err
	}

	switch env.Event {
	case domain.EventSendLocation:
		payload, err := protocol.DecodeLocation(env.Data)
		if err != nil {
			return nil, err
		}
		return presence.PublishLocation{
			SessionID: id,
			Latitude:  payload.Latitude,
			Longitude: payload.Longitude,
			Timestamp: payload.Timestamp,
		}, nil
	case domain.EventClearMarkers:
		return presence.ClearMarkers{SessionID: id}, nil
	default:
		return nil, fmt.Errorf("%w: unknown event %q", domain.ErrMalformedRequest, env.Event)
	}
}
