package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHubPublishReachesSubscribedUser(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(r.URL.Query().Get("user"), nil, w, r)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?user=investor-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.Subscribers(StreamNDAs, "investor-1") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Publish(StreamNDAs, "someone-else", Message{Event: "nda.approved"})
	hub.Publish(StreamNDAs, "investor-1", Message{Event: "nda.signed", Data: map[string]any{"nda_id": "n-1"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var received Message
	require.NoError(t, conn.ReadJSON(&received))
	require.Equal(t, StreamNDAs, received.Stream)
	require.Equal(t, "nda.signed", received.Event)
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve("creator-1", []string{StreamNotifications, "unknown"}, w, r)
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return hub.Subscribers(StreamNotifications, "creator-1") == 1
	}, time.Second, 10*time.Millisecond)
	require.Zero(t, hub.Subscribers(StreamNDAs, "creator-1"))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return hub.Subscribers(StreamNotifications, "creator-1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSameOriginOrLoopback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/api/ndas/events", nil)
	req.Host = "api.example.com"

	req.Header.Set("Origin", "https://api.example.com")
	require.True(t, sameOriginOrLoopback(req))

	req.Header.Set("Origin", "http://localhost:5173")
	require.True(t, sameOriginOrLoopback(req))

	req.Header.Set("Origin", "https://evil.example.net")
	require.False(t, sameOriginOrLoopback(req))
}
