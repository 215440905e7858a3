package webhook

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/brigadeops/core/internal/live"
)

func TestLiveHandlerUpgradesAndForwardsBroadcastFrames(t *testing.T) {
	log := logrus.New()
	log.SetOutput(discard{})
	hub := live.New(log)

	r := newTestEngine()
	NewLiveHandler(hub, log).Register(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/live?role=kiosk"
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	time.Sleep(20 * time.Millisecond)
	hub.Broadcast(live.EventVisitSeated, map[string]string{"visit_id": "v1"})

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := client.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(payload), live.EventVisitSeated)
	require.Contains(t, string(payload), "v1")
}

func TestLiveHandlerUnregistersOnClientDisconnect(t *testing.T) {
	log := logrus.New()
	log.SetOutput(discard{})
	hub := live.New(log)

	r := newTestEngine()
	NewLiveHandler(hub, log).Register(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/live"
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	client.Close()
	// Give the server-side read loop time to observe the close, unregister,
	// and return; a broadcast afterward must not panic on a dead connection.
	time.Sleep(50 * time.Millisecond)
	hub.Broadcast(live.EventCameraDegraded, map[string]string{"camera_id": "c1"})
}
