package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(zap.NewNop())
	go h.Run()
	t.Cleanup(h.Close)
	return h
}

func dialHub(t *testing.T, h *Hub, userID string) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		h.Register(conn, userID)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_DeliversToConnectedUser(t *testing.T) {
	h := newRunningHub(t)
	conn := dialHub(t, h, "u1")

	// Registration races the first event; give the hub loop a beat.
	time.Sleep(50 * time.Millisecond)
	h.Notify("u1", Success(TypeInstalled, "p1", "Plugin installed"))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, TypeInstalled, event.Type)
	assert.Equal(t, "p1", event.PluginID)
	assert.True(t, event.Success)
}

func TestHub_EventForOtherUserNotDelivered(t *testing.T) {
	h := newRunningHub(t)
	conn := dialHub(t, h, "u1")

	time.Sleep(50 * time.Millisecond)
	h.Notify("someone-else", Success(TypeSaved, "p1", "Plugin saved"))

	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var event Event
	err := conn.ReadJSON(&event)
	assert.Error(t, err, "no event should arrive for another user")
}

func TestHub_NotifyWithoutSessionsIsDropped(t *testing.T) {
	h := newRunningHub(t)
	assert.NotPanics(t, func() {
		h.Notify("nobody-connected", Failure("p1", "boom"))
	})
}

func TestHub_NotifyAfterClose(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()
	h.Close()

	assert.NotPanics(t, func() {
		h.Notify("u1", Success(TypeActivated, "p1", "ok"))
	})
}
