package domain

// Event names of the client/server contract. These are the compatibility
// surface with existing map clients and must not change.
const (
	EventSendLocation     = "send-location"
	EventClearMarkers     = "clear-markers"
	EventExistingUsers    = "existing-users"
	EventReceiveLocation  = "receive-location"
	EventUserDisconnected = "user-disconnected"
	EventUserConnected    = "user-connected"
)
