package handler

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/nimbuspay/gateway/internal/models"
	"github.com/nimbuspay/gateway/internal/service"
	"github.com/nimbuspay/gateway/internal/utils"
)

// PaymentHandler handles payment HTTP endpoints.
type PaymentHandler struct {
	payments    *service.PaymentService
	idempotency *service.IdempotencyService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService, idempotency *service.IdempotencyService) *PaymentHandler {
	return &PaymentHandler{payments: payments, idempotency: idempotency}
}

// CreatePayment handles POST /v1/payments. When an Idempotency-Key header is
// present, a repeat request within the TTL replays the original response
// byte for byte without creating a second payment.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	merchantID := c.GetString("merchant_id")

	key := c.GetHeader("Idempotency-Key")
	if key != "" {
		cached, ok, err := h.idempotency.Lookup(key, merchantID)
		if err != nil {
			utils.HandleError(c, err)
			return
		}
		if ok {
			c.Data(201, "application/json; charset=utf-8", cached)
			return
		}
	}

	var req service.CreatePaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "BAD_REQUEST", "Invalid request body")
		return
	}

	payment, err := h.payments.CreatePayment(c.Request.Context(), merchantID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	body, err := json.Marshal(payment.View())
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	if key != "" {
		if err := h.idempotency.Store(key, merchantID, body); err != nil {
			log.Error().Err(err).Str("idempotency_key", key).Msg("Failed to store idempotency record")
		}
	}
	c.Data(201, "application/json; charset=utf-8", body)
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	merchantID := c.GetString("merchant_id")
	payment, err := h.payments.GetPayment(c.Param("id"), merchantID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(200, payment.View())
}

type captureRequest struct {
	Amount int64 `json:"amount"`
}

// CapturePayment handles POST /v1/payments/:id/capture. The body is
// optional; an omitted amount captures the full payment amount.
func (h *PaymentHandler) CapturePayment(c *gin.Context) {
	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.Error(c, 400, "BAD_REQUEST", "Invalid request body")
		return
	}

	merchantID := c.GetString("merchant_id")
	payment, err := h.payments.CapturePayment(c.Param("id"), merchantID, req.Amount)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(200, payment.View())
}

// ListPayments handles GET /v1/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	merchantID := c.GetString("merchant_id")
	payments, err := h.payments.ListPayments(merchantID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	views := make([]*models.PaymentView, 0, len(payments))
	for i := range payments {
		views = append(views, payments[i].View())
	}
	c.JSON(200, gin.H{"count": len(views), "items": views})
}
