package utils

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// ErrorInfo is the error body of the API envelope.
type ErrorInfo struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ErrorResponse is the envelope for all error responses.
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

// Error writes an error response with the given API error code and description.
func Error(c *gin.Context, status int, code, description string) {
	c.JSON(status, ErrorResponse{Error: ErrorInfo{Code: code, Description: description}})
}

// errorDescriptions maps sentinel errors to human-readable descriptions.
var errorDescriptions = map[error]string{
	ErrAuthentication:           "Invalid API credentials",
	ErrInvalidCredentials:       "Invalid email or password",
	ErrOrderNotFound:            "Order not found",
	ErrPaymentNotFound:          "Payment not found",
	ErrRefundNotFound:           "Refund not found",
	ErrWebhookLogNotFound:       "Webhook log not found",
	ErrMerchantNotFound:         "Merchant not found",
	ErrInvalidMethod:            "Invalid payment method",
	ErrMissingVPA:               "VPA is required for UPI payments",
	ErrInvalidVPA:               "Invalid VPA format",
	ErrMissingCardDetails:       "Card details are required for card payments",
	ErrInvalidCard:              "Invalid card number",
	ErrExpiredCard:              "Card has expired",
	ErrInvalidAmount:            "Invalid amount",
	ErrWebhookNotConfigured:     "Webhook URL not configured",
	ErrNotRefundable:            "Payment not in refundable state",
	ErrInsufficientRefundAmount: "Refund amount exceeds available amount",
	ErrAlreadyCaptured:          "Payment already captured",
	ErrNotCapturable:            "Payment not in capturable state",
	ErrCaptureAmountMismatch:    "Capture amount must equal payment amount",
}

// notFoundErrors surface as 404; every other known sentinel is a 400.
var notFoundErrors = map[error]struct{}{
	ErrOrderNotFound:      {},
	ErrPaymentNotFound:    {},
	ErrRefundNotFound:     {},
	ErrWebhookLogNotFound: {},
	ErrMerchantNotFound:   {},
}

// HandleError maps a service error to the API envelope: not-found sentinels
// to 404, other known sentinels to 400, anything else to a generic 500.
func HandleError(c *gin.Context, err error) {
	for sentinel, description := range errorDescriptions {
		if errors.Is(err, sentinel) {
			status := 400
			if _, ok := notFoundErrors[sentinel]; ok {
				status = 404
			}
			Error(c, status, sentinel.Error(), description)
			return
		}
	}
	Error(c, 500, "SERVER_ERROR", "Internal server error")
}
