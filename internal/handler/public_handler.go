package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/nimbuspay/gateway/internal/service"
	"github.com/nimbuspay/gateway/internal/utils"
)

// PublicHandler serves the unauthenticated checkout endpoints. Responses are
// trimmed to what the hosted checkout page needs.
type PublicHandler struct {
	orders   *service.OrderService
	payments *service.PaymentService
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(orders *service.OrderService, payments *service.PaymentService) *PublicHandler {
	return &PublicHandler{orders: orders, payments: payments}
}

// GetOrder handles GET /v1/public/orders/:id
func (h *PublicHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrderPublic(c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(200, gin.H{
		"id":       order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
		"status":   order.Status,
	})
}

// GetPayment handles GET /v1/public/payments/:id, used by the checkout page
// to poll settlement status.
func (h *PublicHandler) GetPayment(c *gin.Context) {
	payment, err := h.payments.GetPaymentPublic(c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(200, gin.H{
		"id":       payment.ID,
		"order_id": payment.OrderID,
		"status":   payment.Status,
		"method":   payment.Method,
	})
}
