package realtime

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsPipe upgrades a real websocket pair through an httptest server so the
// hub-side client has a live connection for its pumps.
func wsPipe(t *testing.T) (server, client *websocket.Conn) {
	t.Helper()

	conns := make(chan *websocket.Conn, 1)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	server = <-conns
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return server, client
}

var clientSeq int

func registerClient(t *testing.T, hub *Hub, userID string) (*Client, *websocket.Conn) {
	t.Helper()

	serverConn, clientConn := wsPipe(t)
	clientSeq++
	c := newClient(fmt.Sprintf("test-conn-%d", clientSeq), userID, serverConn, nil, nil)
	hub.Register(c)
	t.Cleanup(c.Close)
	return c, clientConn
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	return raw
}

func expectNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "expected no frame")
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	first, _ := registerClient(t, hub, "u1")
	assert.True(t, hub.IsUserOnline("u1"))

	second, _ := registerClient(t, hub, "u1")
	assert.Equal(t, 1, hub.Unregister(first), "one connection left after the first drop")
	assert.True(t, hub.IsUserOnline("u1"))

	assert.Equal(t, 0, hub.Unregister(second))
	assert.False(t, hub.IsUserOnline("u1"))
}

func TestHubBroadcastToRoom(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sender, senderConn := registerClient(t, hub, "u1")
	member, memberConn := registerClient(t, hub, "u2")
	_, outsiderConn := registerClient(t, hub, "u3")

	hub.Join("room-1", sender)
	hub.Join("room-1", member)

	hub.BroadcastToRoom("room-1", []byte(`{"event":"ping"}`), "u1")

	assert.JSONEq(t, `{"event":"ping"}`, string(readFrame(t, memberConn)))
	expectNoFrame(t, senderConn)
	expectNoFrame(t, outsiderConn)
}

func TestHubLeaveRoom(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	c, conn := registerClient(t, hub, "u1")
	hub.Join("room-1", c)
	hub.Leave("room-1", c)

	hub.BroadcastToRoom("room-1", []byte("frame"), "")
	expectNoFrame(t, conn)
}

func TestHubSendToUser(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	_, phone := registerClient(t, hub, "u1")
	_, laptop := registerClient(t, hub, "u1")
	_, other := registerClient(t, hub, "u2")

	hub.SendToUser("u1", []byte("direct"))

	assert.Equal(t, "direct", string(readFrame(t, phone)))
	assert.Equal(t, "direct", string(readFrame(t, laptop)))
	expectNoFrame(t, other)
}

func TestHubLocalOnlineUsers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	registerClient(t, hub, "u1")
	registerClient(t, hub, "u3")

	online := hub.LocalOnlineUsers([]string{"u1", "u2", "u3", "u4"})
	assert.Equal(t, []string{"u1", "u3"}, online)
}

func TestHubUnregisterEmptiesRooms(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	c, conn := registerClient(t, hub, "u1")
	hub.Join("room-1", c)
	hub.Unregister(c)

	hub.BroadcastToRoom("room-1", []byte("gone"), "")
	expectNoFrame(t, conn)
}
