package service

import "encoding/json"

// Job payloads exchanged between the API process (producer) and the worker
// process (consumer) over the queue. Field names are part of the wire format.

// PaymentJob asks the worker to settle one pending payment.
type PaymentJob struct {
	PaymentID string `json:"paymentId"`
	Method    string `json:"method"`
}

// RefundJob asks the worker to process one pending refund.
type RefundJob struct {
	RefundID string `json:"refundId"`
}

// WebhookJob asks the worker to attempt delivery for one webhook log. The
// log row is the durable source of truth for attempt state; the merchant,
// event, and payload fields ride along for observability of queued jobs.
type WebhookJob struct {
	WebhookLogID string          `json:"webhookLogId"`
	MerchantID   string          `json:"merchantId"`
	Event        string          `json:"event"`
	Payload      json.RawMessage `json:"payload"`
}
