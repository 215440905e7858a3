// Package live implements the narrow "optional demo-replay broadcast
// hook" §6 allows: a registry of websocket connections that the core
// pushes domain events to, with no HTTP route of its own. Accepting a
// connection (the upgrade handshake, auth) is the caller's job; Hub
// only tracks connections once handed one and fans out JSON frames.
package live

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event names pushed by the core on state changes the core itself
// produces — never request/response payloads, those travel over the
// regular HTTP façade.
const (
	EventTableStateChanged = "table_state_changed"
	EventVisitSeated       = "visit_seated"
	EventCameraDegraded    = "camera_degraded"
)

// Frame is the wire envelope for every broadcast message.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub fans out Frames to every registered connection. The zero value
// is not usable; construct with New.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]string
	log     *logrus.Logger
}

func New(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.New()
	}
	return &Hub{clients: make(map[*websocket.Conn]string), log: log}
}

// Register adds an already-upgraded connection under role (e.g.
// "host", "manager", "kiosk"), mirroring kds_hub.RegisterClient.
func (h *Hub) Register(conn *websocket.Conn, role string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = role
}

// Unregister closes and drops a connection, mirroring
// kds_hub.UnregisterClient.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	conn.Close()
}

// Broadcast implements store.Broadcaster (declared in
// internal/store/store.go), so Hub can be injected without the store
// importing gorilla/websocket directly.
func (h *Hub) Broadcast(event string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}

	payload, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		h.log.WithError(err).Warn("live: failed to marshal broadcast frame")
		return
	}

	for conn, role := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.WithError(err).WithField("role", role).Warn("live: dropping dead connection")
			delete(h.clients, conn)
			conn.Close()
		}
	}
}
