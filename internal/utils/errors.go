package utils

import "errors"

// Common application errors used across services. The text doubles as the
// API error code surfaced in responses.
var (
	ErrAuthentication           = errors.New("AUTHENTICATION_ERROR")
	ErrInvalidCredentials       = errors.New("INVALID_CREDENTIALS")
	ErrOrderNotFound            = errors.New("ORDER_NOT_FOUND")
	ErrPaymentNotFound          = errors.New("PAYMENT_NOT_FOUND")
	ErrRefundNotFound           = errors.New("REFUND_NOT_FOUND")
	ErrWebhookLogNotFound       = errors.New("WEBHOOK_LOG_NOT_FOUND")
	ErrMerchantNotFound         = errors.New("MERCHANT_NOT_FOUND")
	ErrInvalidMethod            = errors.New("INVALID_METHOD")
	ErrMissingVPA               = errors.New("MISSING_VPA")
	ErrInvalidVPA               = errors.New("INVALID_VPA")
	ErrMissingCardDetails       = errors.New("MISSING_CARD_DETAILS")
	ErrInvalidCard              = errors.New("INVALID_CARD")
	ErrExpiredCard              = errors.New("EXPIRED_CARD")
	ErrInvalidAmount            = errors.New("INVALID_AMOUNT")
	ErrWebhookNotConfigured     = errors.New("WEBHOOK_NOT_CONFIGURED")
	ErrNotRefundable            = errors.New("NOT_REFUNDABLE")
	ErrInsufficientRefundAmount = errors.New("INSUFFICIENT_REFUND_AMOUNT")
	ErrAlreadyCaptured          = errors.New("ALREADY_CAPTURED")
	ErrNotCapturable            = errors.New("NOT_CAPTURABLE")
	ErrCaptureAmountMismatch    = errors.New("CAPTURE_AMOUNT_MISMATCH")
)
