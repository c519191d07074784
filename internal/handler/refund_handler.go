package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/nimbuspay/gateway/internal/service"
	"github.com/nimbuspay/gateway/internal/utils"
)

// RefundHandler handles refund HTTP endpoints.
type RefundHandler struct {
	refunds *service.RefundService
}

// NewRefundHandler constructs a RefundHandler.
func NewRefundHandler(refunds *service.RefundService) *RefundHandler {
	return &RefundHandler{refunds: refunds}
}

// CreateRefund handles POST /v1/payments/:id/refund
func (h *RefundHandler) CreateRefund(c *gin.Context) {
	var req service.CreateRefundInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "BAD_REQUEST", "Invalid request body")
		return
	}

	merchantID := c.GetString("merchant_id")
	refund, err := h.refunds.CreateRefund(c.Request.Context(), merchantID, c.Param("id"), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(201, refund.View())
}

// GetRefund handles GET /v1/refunds/:id
func (h *RefundHandler) GetRefund(c *gin.Context) {
	merchantID := c.GetString("merchant_id")
	refund, err := h.refunds.GetRefund(c.Param("id"), merchantID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(200, refund.View())
}
