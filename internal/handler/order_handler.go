package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/nimbuspay/gateway/internal/service"
	"github.com/nimbuspay/gateway/internal/utils"
)

// OrderHandler handles order HTTP endpoints.
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder handles POST /v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "BAD_REQUEST", "Invalid request body")
		return
	}

	merchantID := c.GetString("merchant_id")
	order, err := h.orders.CreateOrder(merchantID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(201, order)
}

// GetOrder handles GET /v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	merchantID := c.GetString("merchant_id")
	order, err := h.orders.GetOrder(c.Param("id"), merchantID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(200, order)
}
