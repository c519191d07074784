package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nimbuspay/gateway/internal/service"
	"github.com/nimbuspay/gateway/internal/utils"
)

// WebhookHandler handles webhook log and delivery endpoints.
type WebhookHandler struct {
	webhooks *service.WebhookService
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(webhooks *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// ListWebhooks handles GET /v1/webhooks
func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	merchantID := c.GetString("merchant_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, total, err := h.webhooks.List(merchantID, limit, offset)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(200, gin.H{"count": total, "items": logs})
}

// RetryWebhook handles POST /v1/webhooks/:id/retry
func (h *WebhookHandler) RetryWebhook(c *gin.Context) {
	merchantID := c.GetString("merchant_id")
	l, err := h.webhooks.Retry(c.Request.Context(), c.Param("id"), merchantID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(200, l)
}

// SendTestWebhook handles POST /v1/webhooks/test
func (h *WebhookHandler) SendTestWebhook(c *gin.Context) {
	merchantID := c.GetString("merchant_id")
	l, err := h.webhooks.SendTest(c.Request.Context(), merchantID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(201, l)
}
