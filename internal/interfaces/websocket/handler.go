package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"go-live-feed/internal/infrastructure/hub"
	"go-live-feed/internal/infrastructure/logger"
)

// UpgradeGate may refuse an upgrade request before the handshake, e.g. to
// check a session. A nil gate admits everyone.
type UpgradeGate func(r *http.Request) error

// WebSocketHandler upgrades clients onto the live change feed
type WebSocketHandler struct {
	registry *hub.Registry
	opts     hub.Options
	gate     UpgradeGate
	logger   logger.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler instance. opts.OnMessage
// receives every text frame clients send.
func NewWebSocketHandler(registry *hub.Registry, opts hub.Options, gate UpgradeGate, logger logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		registry: registry,
		opts:     opts,
		gate:     gate,
		logger:   logger.WithField("handler", "websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// No origin policy is enforced here; deployments that need one
			// install an UpgradeGate.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Connect handles WebSocket connection upgrade requests
func (h *WebSocketHandler) Connect(c *gin.Context) {
	if h.gate != nil {
		if err := h.gate(c.Request); err != nil {
			h.logger.Warnf("Upgrade refused: %v", err)
			c.JSON(http.StatusForbidden, gin.H{"error": "Upgrade refused"})
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := hub.NewWebSocketConnection("ws-"+uuid.NewString(), conn, h.logger, h.opts)
	h.registry.Register(wsConn)

	// Keep the connection alive until client disconnects
	<-wsConn.Context().Done()
	h.logger.Debugf("WebSocket connection %s disconnected", wsConn.ID())
}
