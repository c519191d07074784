package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/nimbuspay/gateway/internal/queue"
	"github.com/nimbuspay/gateway/internal/utils"
)

// QueueHandler exposes queue depths for the dashboard.
type QueueHandler struct {
	queue *queue.Client
}

// NewQueueHandler constructs a QueueHandler.
func NewQueueHandler(q *queue.Client) *QueueHandler {
	return &QueueHandler{queue: q}
}

// GetStats handles GET /v1/dashboard/queues
func (h *QueueHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	topics := []string{queue.TopicPayment, queue.TopicWebhook, queue.TopicRefund}

	stats := make(map[string]queue.Counts, len(topics))
	for _, topic := range topics {
		counts, err := h.queue.Counts(ctx, topic)
		if err != nil {
			utils.HandleError(c, err)
			return
		}
		stats[topic] = counts
	}
	c.JSON(200, stats)
}
