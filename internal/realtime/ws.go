package realtime

import (
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"github.com/photofeed/backend/internal/logger"
)

// WSHandler upgrades HTTP requests into hub-registered WebSocket clients.
type WSHandler struct {
	hub *Hub
}

// NewWSHandler creates a new WebSocket upgrade handler
func NewWSHandler(hub *Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Serve handles GET /api/v1/ws/likes. The connection needs no actor: like
// updates are public data, the same counts any feed request returns.
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.WarnWithFields("WebSocket upgrade failed", err)
		return
	}

	client := newClient(h.hub, conn, c.ClientIP())
	h.hub.register <- client

	go client.writeLoop(h.hub.ctx)
	client.readLoop(h.hub.ctx)
}
