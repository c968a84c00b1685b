package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/wealthcrm/pkg/jwt"
	"github.com/dmitrymomot/wealthcrm/pkg/logger"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 4096
)

// Handler upgrades HTTP requests to websocket sessions bound to the registry.
type Handler struct {
	registry       *Registry
	upgrader       websocket.Upgrader
	extract        jwt.TokenExtractorFunc
	logger         *slog.Logger
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64
	now            func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithCheckOrigin sets the origin policy of the upgrader.
func WithCheckOrigin(fn func(r *http.Request) bool) HandlerOption {
	return func(h *Handler) {
		h.upgrader.CheckOrigin = fn
	}
}

// WithPongWait sets how long a silent peer is kept. Pings go out at 9/10 of it.
func WithPongWait(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.pongWait = d
			h.pingPeriod = d * 9 / 10
		}
	}
}

func WithWriteWait(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.writeWait = d
		}
	}
}

// WithTokenExtractor overrides where the credential is read from.
func WithTokenExtractor(fn jwt.TokenExtractorFunc) HandlerOption {
	return func(h *Handler) {
		if fn != nil {
			h.extract = fn
		}
	}
}

func WithHandlerClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler reads the credential from the token query parameter or the
// bearer header.
func NewHandler(registry *Registry, opts ...HandlerOption) *Handler {
	h := &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		extract:        jwt.FirstOf(jwt.QueryTokenExtractor("token"), jwt.BearerTokenExtractor),
		logger:         slog.Default(),
		writeWait:      defaultWriteWait,
		pongWait:       defaultPongWait,
		pingPeriod:     defaultPongWait * 9 / 10,
		maxMessageSize: defaultMaxMessageSize,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	credential, _ := h.extract(r)

	conn, ack, err := h.registry.Connect(r.Context(), credential)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.registry.Disconnect(conn)
		h.logger.LogAttrs(r.Context(), slog.LevelWarn, "websocket upgrade failed",
			logger.UserID(conn.UserID()),
			logger.Error(err),
		)
		return
	}

	_ = conn.Send(EventConnected, ack)

	go h.writePump(ws, conn)
	go h.readPump(ws, conn)
}

func (h *Handler) readPump(ws *websocket.Conn, conn *Connection) {
	defer func() {
		h.registry.Disconnect(conn)
		_ = ws.Close()
	}()

	ws.SetReadLimit(h.maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(h.pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.LogAttrs(context.Background(), slog.LevelDebug, "websocket closed unexpectedly",
					logger.ConnectionID(conn.ID()),
					logger.Error(err),
				)
			}
			return
		}
		h.handleMessage(conn, raw)
	}
}

func (h *Handler) writePump(ws *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case msg, ok := <-conn.Outbox():
			_ = ws.SetWriteDeadline(time.Now().Add(h.writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) handleMessage(conn *Connection, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		_ = conn.Send(EventError, errorPayload{Message: "malformed message"})
		return
	}

	switch msg.Event {
	case ClientPing:
		_ = conn.Send(EventPong, pongPayload{Timestamp: h.now().UnixMilli()})

	case ClientSubscribe, ClientUnsubscribe:
		var p typePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || !p.Type.Valid() {
			_ = conn.Send(EventError, errorPayload{Message: ErrInvalidType.Error()})
			return
		}
		if msg.Event == ClientSubscribe {
			if err := h.registry.Join(conn, TypeRoom(p.Type)); err != nil {
				return
			}
			_ = conn.Send(EventSubscribed, p)
			return
		}
		h.registry.Leave(conn, TypeRoom(p.Type))
		_ = conn.Send(EventUnsubscribed, p)

	default:
		_ = conn.Send(EventError, errorPayload{Message: ErrUnknownEvent.Error()})
	}
}
