package webhook

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/brigadeops/core/internal/live"
)

// liveUpgrader is intentionally permissive about origin: the broadcast
// feed carries no request-scoped data and no write path, only the
// domain events store/camera already produce (§6's "demo-replay" use
// case), so it is not a target worth CSRF-style origin checks.
var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// LiveHandler upgrades a connection into the live.Hub broadcast feed.
// It is deliberately thin: no client protocol, no auth — register,
// block on reads until the peer disconnects, unregister. Business
// logic never runs here; it is plumbing for an optional feature (§6).
type LiveHandler struct {
	hub *live.Hub
	log *logrus.Logger
}

func NewLiveHandler(hub *live.Hub, log *logrus.Logger) *LiveHandler {
	return &LiveHandler{hub: hub, log: log}
}

func (h *LiveHandler) Register(r gin.IRoutes) {
	r.GET("/live", h.Serve)
}

func (h *LiveHandler) Serve(c *gin.Context) {
	role := c.DefaultQuery("role", "viewer")

	conn, err := liveUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("live: upgrade failed")
		return
	}
	h.hub.Register(conn, role)
	defer h.hub.Unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
