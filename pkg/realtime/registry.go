package realtime

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
)

const (
	shardCount        = 32
	DefaultOutboxSize = 64
)

type shard struct {
	mu    sync.RWMutex
	users map[string]map[string]*Connection
}

// Registry tracks live connections by user and fans events out to them.
// Users are spread across lock shards by a hash of the user id.
type Registry struct {
	shards     [shardCount]*shard
	auth       Authenticator
	logger     *slog.Logger
	outboxSize int
	now        func() time.Time

	roomsMu sync.RWMutex
	rooms   map[string]map[string]*Connection
}

// Option configures a Registry.
type Option func(*Registry)

func WithRegistryLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithOutboxSize sets the per-connection frame buffer.
func WithOutboxSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.outboxSize = n
		}
	}
}

func WithRegistryClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRegistry(auth Authenticator, opts ...Option) *Registry {
	r := &Registry{
		auth:       auth,
		logger:     slog.Default(),
		outboxSize: DefaultOutboxSize,
		now:        time.Now,
		rooms:      make(map[string]map[string]*Connection),
	}
	for i := range r.shards {
		r.shards[i] = &shard{users: make(map[string]map[string]*Connection)}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return r.shards[h.Sum32()%shardCount]
}

// Connect authenticates the credential and registers a new connection for
// the resolved user. A user may hold any number of connections.
func (r *Registry) Connect(ctx context.Context, credential string) (*Connection, Ack, error) {
	if credential == "" || r.auth == nil {
		return nil, Ack{}, ErrUnauthorized
	}

	userID, err := r.auth.Authenticate(ctx, credential)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "connection rejected", logger.Error(err))
		return nil, Ack{}, errors.Join(ErrUnauthorized, err)
	}
	if userID == "" {
		return nil, Ack{}, ErrUnauthorized
	}

	conn := newConnection(uuid.NewString(), userID, r.outboxSize, r.now())

	s := r.shardFor(userID)
	s.mu.Lock()
	set, ok := s.users[userID]
	if !ok {
		set = make(map[string]*Connection)
		s.users[userID] = set
	}
	set[conn.id] = conn
	s.mu.Unlock()

	r.logger.LogAttrs(ctx, slog.LevelDebug, "connection registered",
		logger.UserID(userID),
		logger.ConnectionID(conn.id),
	)

	return conn, Ack{UserID: userID, ConnectionID: conn.id}, nil
}

// Disconnect unregisters the connection, leaves its rooms and closes its
// outbox. Calling it more than once is harmless.
func (r *Registry) Disconnect(conn *Connection) {
	if conn == nil {
		return
	}

	s := r.shardFor(conn.userID)
	s.mu.Lock()
	if set, ok := s.users[conn.userID]; ok {
		if set[conn.id] == conn {
			delete(set, conn.id)
		}
		if len(set) == 0 {
			delete(s.users, conn.userID)
		}
	}
	s.mu.Unlock()

	if !conn.close() {
		return
	}

	r.roomsMu.Lock()
	for room := range conn.rooms {
		r.removeFromRoom(room, conn)
	}
	r.roomsMu.Unlock()

	r.logger.LogAttrs(context.Background(), slog.LevelDebug, "connection closed",
		logger.UserID(conn.userID),
		logger.ConnectionID(conn.id),
	)
}

// SendToUser delivers the event to every connection of the user and returns
// the number of connections that accepted it. Unknown users are a no-op.
func (r *Registry) SendToUser(userID, event string, data any) int {
	msg, ok := r.encode(event, data)
	if !ok {
		return 0
	}
	return r.deliver(r.userConnections(userID), event, msg)
}

// SendToUsers is SendToUser for several users; duplicate ids are sent once.
func (r *Registry) SendToUsers(userIDs []string, event string, data any) int {
	msg, ok := r.encode(event, data)
	if !ok {
		return 0
	}

	seen := make(map[string]struct{}, len(userIDs))
	delivered := 0
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		delivered += r.deliver(r.userConnections(id), event, msg)
	}
	return delivered
}

// Broadcast delivers the event to every live connection.
func (r *Registry) Broadcast(event string, data any) int {
	msg, ok := r.encode(event, data)
	if !ok {
		return 0
	}

	var conns []*Connection
	for _, s := range r.shards {
		s.mu.RLock()
		for _, set := range s.users {
			for _, c := range set {
				conns = append(conns, c)
			}
		}
		s.mu.RUnlock()
	}
	return r.deliver(conns, event, msg)
}

// Join adds the connection to a room.
func (r *Registry) Join(conn *Connection, room string) error {
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()

	if conn.isClosed() {
		return ErrConnectionClosed
	}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]*Connection)
		r.rooms[room] = members
	}
	members[conn.id] = conn
	conn.rooms[room] = struct{}{}
	return nil
}

// Leave removes the connection from a room.
func (r *Registry) Leave(conn *Connection, room string) {
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()
	r.removeFromRoom(room, conn)
}

func (r *Registry) removeFromRoom(room string, conn *Connection) {
	delete(conn.rooms, room)
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, conn.id)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// SendToRoom delivers the event to every connection in the room.
func (r *Registry) SendToRoom(room, event string, data any) int {
	msg, ok := r.encode(event, data)
	if !ok {
		return 0
	}

	r.roomsMu.RLock()
	conns := make([]*Connection, 0, len(r.rooms[room]))
	for _, c := range r.rooms[room] {
		conns = append(conns, c)
	}
	r.roomsMu.RUnlock()

	return r.deliver(conns, event, msg)
}

// RoomSize returns the number of connections in the room.
func (r *Registry) RoomSize(room string) int {
	r.roomsMu.RLock()
	defer r.roomsMu.RUnlock()
	return len(r.rooms[room])
}

// Subscribed reports whether the connection follows the notification type.
func (r *Registry) Subscribed(conn *Connection, t notifications.Type) bool {
	r.roomsMu.RLock()
	defer r.roomsMu.RUnlock()
	_, ok := conn.rooms[TypeRoom(t)]
	return ok
}

func (r *Registry) IsUserConnected(userID string) bool {
	s := r.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[userID]) > 0
}

func (r *Registry) ConnectedUserCount() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.users)
		s.mu.RUnlock()
	}
	return n
}

func (r *Registry) ConnectionCount() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		for _, set := range s.users {
			n += len(set)
		}
		s.mu.RUnlock()
	}
	return n
}

// Reset disconnects everything. Used on shutdown and between tests.
func (r *Registry) Reset() {
	var conns []*Connection
	for _, s := range r.shards {
		s.mu.RLock()
		for _, set := range s.users {
			for _, c := range set {
				conns = append(conns, c)
			}
		}
		s.mu.RUnlock()
	}
	for _, c := range conns {
		r.Disconnect(c)
	}
}

func (r *Registry) userConnections(userID string) []*Connection {
	s := r.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.users[userID]
	if len(set) == 0 {
		return nil
	}
	conns := make([]*Connection, 0, len(set))
	for _, c := range set {
		conns = append(conns, c)
	}
	return conns
}

func (r *Registry) encode(event string, data any) ([]byte, bool) {
	msg, err := encode(event, data)
	if err != nil {
		r.logger.LogAttrs(context.Background(), slog.LevelError, "failed to encode event",
			logger.Event(event),
			logger.Error(err),
		)
		return nil, false
	}
	return msg, true
}

func (r *Registry) deliver(conns []*Connection, event string, msg []byte) int {
	delivered := 0
	for _, c := range conns {
		if err := c.enqueue(msg); err != nil {
			if errors.Is(err, ErrOutboxFull) {
				r.logger.LogAttrs(context.Background(), slog.LevelWarn, "dropping event for slow connection",
					logger.Event(event),
					logger.UserID(c.userID),
					logger.ConnectionID(c.id),
				)
			}
			continue
		}
		delivered++
	}
	return delivered
}
