package realtime

import (
	"encoding/json"

	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
)

// Server-to-client events.
const (
	EventConnected            = "connected"
	EventNotification         = "notification"
	EventNotificationRead     = "notification:read"
	EventNotificationArchived = "notification:archived"
	EventNotificationDeleted  = "notification:deleted"
	EventAllRead              = "notifications:all-read"
	EventPong                 = "pong"
	EventSubscribed           = "subscribed"
	EventUnsubscribed         = "unsubscribed"
	EventError                = "error"
)

// Client-to-server events.
const (
	ClientSubscribe   = "subscribe"
	ClientUnsubscribe = "unsubscribe"
	ClientPing        = "ping"
)

// Message is the envelope of every frame sent to clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ClientMessage is a frame received from a client.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Ack is sent as the connected event after a successful handshake.
type Ack struct {
	UserID       string `json:"user_id"`
	ConnectionID string `json:"connection_id"`
}

// IDPayload is the body of the read, archived and deleted events.
type IDPayload struct {
	ID string `json:"id"`
}

type typePayload struct {
	Type notifications.Type `json:"type"`
}

type pongPayload struct {
	Timestamp int64 `json:"timestamp"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// TypeRoom is the room clients join to follow one notification type.
func TypeRoom(t notifications.Type) string {
	return "type:" + string(t)
}

func encode(event string, data any) ([]byte, error) {
	if data == nil {
		data = struct{}{}
	}
	return json.Marshal(Message{Event: event, Data: data})
}
