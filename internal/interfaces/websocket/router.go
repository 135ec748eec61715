package websocket

import (
	"github.com/gin-gonic/gin"

	"go-live-feed/internal/infrastructure/hub"
	"go-live-feed/internal/infrastructure/logger"
)

// InitWebSocketRouter mounts the upgrade endpoint at /ws.
func InitWebSocketRouter(logger logger.Logger, registry *hub.Registry, opts hub.Options, gate UpgradeGate, rg *gin.RouterGroup) {
	wsHandler := NewWebSocketHandler(registry, opts, gate, logger)

	rg.GET("/ws", wsHandler.Connect)
}
