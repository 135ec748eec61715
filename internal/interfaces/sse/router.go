package sse

import (
	"github.com/gin-gonic/gin"

	"go-live-feed/internal/infrastructure/hub"
	"go-live-feed/internal/infrastructure/logger"
)

func InitSSERouter(logger logger.Logger, registry *hub.Registry, opts hub.Options, rg *gin.RouterGroup) {
	sseHandler := NewServerSentEventHandler(registry, opts, logger)

	rg.GET("/live/sse", sseHandler.Connect)
}
