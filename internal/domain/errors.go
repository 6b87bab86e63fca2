package domain

import "errors"

var (
	ErrMalformedRequest   = errors.New("malformed request")
	ErrBroadcasterStopped = errors.New("broadcaster stopped")
	ErrSendFailed         = errors.New("send failed")
)
