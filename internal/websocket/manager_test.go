package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/waha/internal/logging"
)

func setupHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(logging.NewRecorder(), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
		srv.Close()
	})

	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })

	return conn
}

func TestHubBroadcastReachesClients(t *testing.T) {
	hub, srv := setupHub(t)

	first := dial(t, srv)
	second := dial(t, srv)

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(UpdateMessage{Type: MessageTypeReload, Target: "main.css"})

	for _, conn := range []*websocket.Conn{first, second} {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		typ, data, err := conn.Read(ctx)
		cancel()
		require.NoError(t, err)
		assert.Equal(t, websocket.MessageText, typ)

		var msg UpdateMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, MessageTypeReload, msg.Type)
		assert.Equal(t, "main.css", msg.Target)
		assert.False(t, msg.Timestamp.IsZero())
	}
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub, srv := setupHub(t)

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubRejectsCrossOrigin(t *testing.T) {
	_, srv := setupHub(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set("Origin", "http://evil.example.com")
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubShutdown(t *testing.T) {
	hub, srv := setupHub(t)

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))
	assert.Equal(t, 0, hub.ClientCount())

	_, _, err := conn.Read(ctx)
	assert.Error(t, err)

	// Broadcast after shutdown is a no-op.
	assert.NotPanics(t, func() { hub.Broadcast(UpdateMessage{Type: MessageTypeReload}) })

	w := httptest.NewRecorder()
	hub.HandleWebSocket(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
