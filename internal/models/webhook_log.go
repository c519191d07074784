package models

import (
	"encoding/json"
	"time"
)

type WebhookStatus string

const (
	WebhookPending WebhookStatus = "pending"
	WebhookSuccess WebhookStatus = "success"
	WebhookFailed  WebhookStatus = "failed"
)

// Webhook event names emitted by the processors.
const (
	EventPaymentSuccess  = "payment.success"
	EventPaymentFailed   = "payment.failed"
	EventRefundProcessed = "refund.processed"
	EventWebhookTest     = "webhook.test"
)

// WebhookLog records one notification lineage: the initial delivery attempt
// plus its retries. Attempts only increases; next_retry_at is set only
// between a failed attempt and its scheduled retry.
type WebhookLog struct {
	ID            string          `db:"id" json:"id"`
	MerchantID    string          `db:"merchant_id" json:"merchant_id"`
	Event         string          `db:"event" json:"event"`
	Payload       json.RawMessage `db:"payload" json:"payload"`
	Status        WebhookStatus   `db:"status" json:"status"`
	Attempts      int             `db:"attempts" json:"attempts"`
	LastAttemptAt *time.Time      `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	NextRetryAt   *time.Time      `db:"next_retry_at" json:"next_retry_at,omitempty"`
	ResponseCode  *int            `db:"response_code" json:"response_code,omitempty"`
	ResponseBody  *string         `db:"response_body" json:"response_body,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
