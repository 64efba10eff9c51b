package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// newTestServer 每个连接注册为订阅 reviewIDs 的客户端
func newTestServer(t *testing.T, hub *Hub, viewerID string, reviewIDs ...string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}

		client := &Client{
			ViewerID:  viewerID,
			ReviewIDs: reviewIDs,
			Conn:      conn,
		}
		hub.Register(client)
		defer hub.Unregister(client)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub)
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.False(t, hub.IsWatched("R1"))
}

func TestHub_BroadcastToReview_NoSubscribers(t *testing.T) {
	hub := NewHub()

	assert.Equal(t, 0, hub.BroadcastToReview("R1", []byte(`{}`)))
}

func TestHub_UnregisterUnknownClient(t *testing.T) {
	hub := NewHub()

	hub.Unregister(&Client{ViewerID: "ghost", ReviewIDs: []string{"R1"}})
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_BroadcastToReview(t *testing.T) {
	hub := NewHub()
	server := newTestServer(t, hub, "alice", "R1", "R2")
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == 1
	}, time.Second, 10*time.Millisecond)
	assert.True(t, hub.IsWatched("R1"))
	assert.True(t, hub.IsWatched("R2"))
	assert.False(t, hub.IsWatched("R3"))

	assert.Equal(t, 0, hub.BroadcastToReview("R3", []byte(`{"type":"ignored"}`)))
	assert.Equal(t, 1, hub.BroadcastToReview("R2", []byte(`{"type":"DeletedComment"}`)))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, received, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(received), "DeletedComment")
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	hub := NewHub()
	server := newTestServer(t, hub, "bob", "R1")
	defer server.Close()

	conn := dial(t, server)
	require.Eventually(t, func() bool {
		return hub.IsWatched("R1")
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return !hub.IsWatched("R1") && hub.ConnectionCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHub_MultipleViewersSameReview(t *testing.T) {
	hub := NewHub()
	server := newTestServer(t, hub, "viewer", "R1")
	defer server.Close()

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		conns = append(conns, dial(t, server))
	}
	defer func() {
		for _, conn := range conns {
			conn.Close()
		}
	}()

	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == 3
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 3, hub.BroadcastToReview("R1", []byte(`{"type":"CreatedComment"}`)))
}
