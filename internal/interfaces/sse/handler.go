package sse

import (
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-live-feed/internal/infrastructure/hub"
	"go-live-feed/internal/infrastructure/logger"
)

type ServerSentEventHandler struct {
	registry *hub.Registry
	opts     hub.Options
	logger   logger.Logger
}

func NewServerSentEventHandler(registry *hub.Registry, opts hub.Options, logger logger.Logger) *ServerSentEventHandler {
	return &ServerSentEventHandler{
		registry: registry,
		opts:     opts,
		logger:   logger.WithField("handler", "sse"),
	}
}

// Connect streams the change feed to the client until it disconnects.
// Frames are sent as unnamed events whose data is the JSON envelope.
func (h *ServerSentEventHandler) Connect(c *gin.Context) {
	conn := hub.NewSSEConnection(c.Request.Context(), "sse-"+uuid.NewString(), c.Writer, h.logger, h.opts)
	h.registry.Register(conn)

	conn.Serve(sse.Event{
		Event: "connected",
		Data: map[string]any{
			"connection_id": conn.ID(),
			"timestamp":     time.Now().Format(time.RFC3339),
		},
	})
	h.logger.Debugf("SSE connection %s disconnected", conn.ID())
}
