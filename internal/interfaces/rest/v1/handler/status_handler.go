package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-live-feed/internal/infrastructure/hub"
)

type StatusHandler struct {
	registry   *hub.Registry
	feedDriver string
}

func NewStatusHandler(registry *hub.Registry, feedDriver string) *StatusHandler {
	return &StatusHandler{registry: registry, feedDriver: feedDriver}
}

// Status reports liveness together with the number of open connections.
func (h *StatusHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"feed_driver": h.feedDriver,
		"connections": h.registry.Len(),
	})
}

// GetConnections lists open connections, optionally filtered by ?type=.
func (h *StatusHandler) GetConnections(c *gin.Context) {
	transport := c.Query("type")

	connectionInfo := make([]gin.H, 0, h.registry.Len())
	for _, conn := range h.registry.Snapshot() {
		if transport != "" && conn.Type() != transport {
			continue
		}
		connectionInfo = append(connectionInfo, gin.H{
			"id":   conn.ID(),
			"type": conn.Type(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total_connections": len(connectionInfo),
		"connections":       connectionInfo,
	})
}
