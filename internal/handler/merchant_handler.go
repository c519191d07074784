package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/nimbuspay/gateway/internal/service"
	"github.com/nimbuspay/gateway/internal/utils"
)

// MerchantHandler handles merchant profile, stats and webhook configuration.
type MerchantHandler struct {
	merchants *service.MerchantService
	payments  *service.PaymentService
}

// NewMerchantHandler constructs a MerchantHandler.
func NewMerchantHandler(merchants *service.MerchantService, payments *service.PaymentService) *MerchantHandler {
	return &MerchantHandler{merchants: merchants, payments: payments}
}

// GetProfile handles GET /v1/merchant
func (h *MerchantHandler) GetProfile(c *gin.Context) {
	merchantID := c.GetString("merchant_id")
	m, err := h.merchants.GetMerchant(merchantID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(200, m)
}

// GetStats handles GET /v1/merchant/stats
func (h *MerchantHandler) GetStats(c *gin.Context) {
	merchantID := c.GetString("merchant_id")
	stats, err := h.payments.Stats(merchantID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(200, stats)
}

type updateWebhookRequest struct {
	URL    string  `json:"url"`
	Secret *string `json:"secret"`
}

// UpdateWebhook handles PUT /v1/merchant/webhook
func (h *MerchantHandler) UpdateWebhook(c *gin.Context) {
	var req updateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		utils.Error(c, 400, "BAD_REQUEST", "url is required")
		return
	}

	merchantID := c.GetString("merchant_id")
	url, secret, err := h.merchants.UpdateWebhookConfig(merchantID, req.URL, req.Secret)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(200, gin.H{"webhook_url": url, "webhook_secret": secret})
}
