package models

import "time"

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundProcessed RefundStatus = "processed"
)

// Refund is a partial or full reversal of a successful payment. Refunds in
// pending or processed state count against the payment's refundable amount.
type Refund struct {
	ID          string       `db:"id" json:"id"`
	PaymentID   string       `db:"payment_id" json:"payment_id"`
	MerchantID  string       `db:"merchant_id" json:"merchant_id"`
	Amount      int64        `db:"amount" json:"amount"`
	Reason      *string      `db:"reason" json:"reason,omitempty"`
	Status      RefundStatus `db:"status" json:"status"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time   `db:"processed_at" json:"processed_at,omitempty"`
}

// RefundView is the public projection of a refund.
type RefundView struct {
	ID          string  `json:"id"`
	PaymentID   string  `json:"payment_id"`
	Amount      int64   `json:"amount"`
	Reason      *string `json:"reason,omitempty"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	ProcessedAt string  `json:"processed_at,omitempty"`
}

// View shapes the public projection.
func (r *Refund) View() *RefundView {
	v := &RefundView{
		ID:        r.ID,
		PaymentID: r.PaymentID,
		Amount:    r.Amount,
		Reason:    r.Reason,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.ProcessedAt != nil {
		v.ProcessedAt = r.ProcessedAt.UTC().Format(time.RFC3339)
	}
	return v
}
