package realtime_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wealthcrm/pkg/jwt"
	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/realtime"
)

func serve(t *testing.T, reg *realtime.Registry, opts ...realtime.HandlerOption) string {
	t.Helper()
	opts = append([]realtime.HandlerOption{realtime.WithHandlerLogger(logger.Discard())}, opts...)
	srv := httptest.NewServer(realtime.NewHandler(reg, opts...))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	ws, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func read(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestHandler_Session(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	reg := newRegistry()
	url := serve(t, reg, realtime.WithHandlerClock(func() time.Time { return now }))

	ws := dial(t, url+"?token=tok-A", nil)

	hello := read(t, ws)
	assert.Equal(t, realtime.EventConnected, hello["event"])
	data := hello["data"].(map[string]any)
	assert.Equal(t, "A", data["user_id"])
	assert.NotEmpty(t, data["connection_id"])
	assert.True(t, reg.IsUserConnected("A"))

	require.NoError(t, ws.WriteJSON(map[string]any{"event": "ping"}))
	pong := read(t, ws)
	assert.Equal(t, realtime.EventPong, pong["event"])
	assert.EqualValues(t, now.UnixMilli(), pong["data"].(map[string]any)["timestamp"])

	require.NoError(t, ws.WriteJSON(map[string]any{"event": "subscribe", "data": map[string]string{"type": "SECURITY_ALERT"}}))
	sub := read(t, ws)
	assert.Equal(t, realtime.EventSubscribed, sub["event"])
	assert.Equal(t, "SECURITY_ALERT", sub["data"].(map[string]any)["type"])

	room := realtime.TypeRoom(notifications.TypeSecurityAlert)
	assert.Equal(t, 1, reg.SendToRoom(room, realtime.EventNotification, map[string]string{"id": "n-1"}))
	pushed := read(t, ws)
	assert.Equal(t, realtime.EventNotification, pushed["event"])

	require.NoError(t, ws.WriteJSON(map[string]any{"event": "unsubscribe", "data": map[string]string{"type": "SECURITY_ALERT"}}))
	assert.Equal(t, realtime.EventUnsubscribed, read(t, ws)["event"])
	assert.Equal(t, 0, reg.RoomSize(room))

	require.NoError(t, ws.WriteJSON(map[string]any{"event": "subscribe", "data": map[string]string{"type": "NOPE"}}))
	assert.Equal(t, realtime.EventError, read(t, ws)["event"])

	require.NoError(t, ws.WriteJSON(map[string]any{"event": "dance"}))
	assert.Equal(t, realtime.EventError, read(t, ws)["event"])

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{")))
	assert.Equal(t, realtime.EventError, read(t, ws)["event"])

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return !reg.IsUserConnected("A") }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_BearerHeader(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	url := serve(t, reg)

	ws := dial(t, url, http.Header{"Authorization": []string{"Bearer tok-B"}})
	assert.Equal(t, realtime.EventConnected, read(t, ws)["event"])
	assert.True(t, reg.IsUserConnected("B"))
}

func TestHandler_RejectsWithoutCredential(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	url := serve(t, reg)

	for _, u := range []string{url, url + "?token=garbage"} {
		_, resp, err := websocket.DefaultDialer.Dial(u, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	}
	assert.Equal(t, 0, reg.ConnectionCount())
}

func TestHandler_ServerDisconnectClosesSocket(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	url := serve(t, reg)

	ws := dial(t, url+"?token=tok-A", nil)
	read(t, ws)

	reg.Reset()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err)
}

func TestJWTAuthenticator(t *testing.T) {
	t.Parallel()

	svc, err := jwt.NewFromString("secret")
	require.NoError(t, err)
	token, err := svc.Generate("user-7", "advisor")
	require.NoError(t, err)

	reg := realtime.NewRegistry(realtime.JWTAuthenticator(svc), realtime.WithRegistryLogger(logger.Discard()))

	conn, ack, err := reg.Connect(t.Context(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", ack.UserID)
	assert.Equal(t, "user-7", conn.UserID())

	other, err := jwt.NewFromString("other")
	require.NoError(t, err)
	forged, err := other.Generate("user-7", "admin")
	require.NoError(t, err)

	_, _, err = reg.Connect(t.Context(), forged)
	assert.ErrorIs(t, err, realtime.ErrUnauthorized)
	assert.ErrorIs(t, err, jwt.ErrInvalidSignature)
}
