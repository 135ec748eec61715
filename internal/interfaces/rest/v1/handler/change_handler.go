package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"go-live-feed/internal/infrastructure/logger"
)

// RecordPublisher accepts raw change records from the CRUD layer.
type RecordPublisher interface {
	PublishRecord(ctx context.Context, raw []byte) error
}

type ChangeHandler struct {
	publisher RecordPublisher
	logger    logger.Logger
}

// ChangeRecordRequest holds the fields a record needs to be routed. The body
// itself is forwarded untouched.
type ChangeRecordRequest struct {
	OperationType string `json:"operationType" binding:"required"`
	Namespace     struct {
		Collection string `json:"coll" binding:"required"`
	} `json:"ns"`
}

func NewChangeHandler(publisher RecordPublisher, logger logger.Logger) *ChangeHandler {
	return &ChangeHandler{
		publisher: publisher,
		logger:    logger.WithField("handler", "changes"),
	}
}

// PublishChange feeds one change record into the live feed.
func (h *ChangeHandler) PublishChange(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}

	var req ChangeRecordRequest
	if err := binding.JSON.BindBody(raw, &req); err != nil {
		h.logger.Debugf("Invalid change record: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid change record"})
		return
	}

	if err := h.publisher.PublishRecord(c.Request.Context(), raw); err != nil {
		h.logger.Errorf("Failed to publish change record: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Change feed unavailable"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":         "accepted",
		"operation_type": req.OperationType,
		"collection":     req.Namespace.Collection,
	})
}
