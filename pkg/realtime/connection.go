package realtime

import (
	"sync"
	"time"
)

// Connection is one live client session. Frames are queued on a bounded
// outbox drained by the transport; a full outbox drops the frame.
type Connection struct {
	id          string
	userID      string
	connectedAt time.Time

	mu     sync.Mutex
	closed bool
	out    chan []byte

	// guarded by Registry.roomsMu
	rooms map[string]struct{}
}

func newConnection(id, userID string, size int, now time.Time) *Connection {
	return &Connection{
		id:          id,
		userID:      userID,
		connectedAt: now,
		out:         make(chan []byte, size),
		rooms:       make(map[string]struct{}),
	}
}

func (c *Connection) ID() string             { return c.id }
func (c *Connection) UserID() string         { return c.userID }
func (c *Connection) ConnectedAt() time.Time { return c.connectedAt }

// Outbox yields encoded frames until the connection is disconnected.
func (c *Connection) Outbox() <-chan []byte { return c.out }

// Send encodes and queues a frame for this connection only.
func (c *Connection) Send(event string, data any) error {
	msg, err := encode(event, data)
	if err != nil {
		return err
	}
	return c.enqueue(msg)
}

func (c *Connection) enqueue(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.out <- msg:
		return nil
	default:
		return ErrOutboxFull
	}
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// close reports whether this call closed the outbox.
func (c *Connection) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.closed = true
	close(c.out)
	return true
}
