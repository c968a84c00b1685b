package realtime

import "errors"

var (
	ErrUnauthorized     = errors.New("realtime: unauthorized")
	ErrConnectionClosed = errors.New("realtime: connection closed")
	ErrOutboxFull       = errors.New("realtime: outbox full")
	ErrUnknownEvent     = errors.New("realtime: unknown client event")
	ErrInvalidType      = errors.New("realtime: invalid notification type")
)
