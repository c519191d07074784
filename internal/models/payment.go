package models

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Terminal reports whether the status admits no further transition.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentSuccess || s == PaymentFailed
}

// Error code/description set when simulated settlement fails.
const (
	PaymentFailedCode        = "PAYMENT_FAILED"
	PaymentFailedDescription = "Payment processing failed"
)

// Payment is one settlement attempt against an order. Method-specific fields
// are mutually exclusive: vpa for UPI, card_network/card_last4 for card.
// The full card number and CVV are never stored.
type Payment struct {
	ID               string        `db:"id" json:"id"`
	OrderID          string        `db:"order_id" json:"order_id"`
	MerchantID       string        `db:"merchant_id" json:"merchant_id"`
	Amount           int64         `db:"amount" json:"amount"`
	Currency         string        `db:"currency" json:"currency"`
	Method           PaymentMethod `db:"method" json:"method"`
	Status           PaymentStatus `db:"status" json:"status"`
	Captured         bool          `db:"captured" json:"captured"`
	VPA              *string       `db:"vpa" json:"vpa,omitempty"`
	CardNetwork      *string       `db:"card_network" json:"card_network,omitempty"`
	CardLast4        *string       `db:"card_last4" json:"card_last4,omitempty"`
	ErrorCode        *string       `db:"error_code" json:"error_code,omitempty"`
	ErrorDescription *string       `db:"error_description" json:"error_description,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// PaymentView is the public projection of a payment returned by the API and
// embedded in webhook payloads.
type PaymentView struct {
	ID               string  `json:"id"`
	OrderID          string  `json:"order_id"`
	Amount           int64   `json:"amount"`
	Currency         string  `json:"currency"`
	Method           string  `json:"method"`
	Status           string  `json:"status"`
	Captured         bool    `json:"captured"`
	VPA              *string `json:"vpa,omitempty"`
	CardNetwork      *string `json:"card_network,omitempty"`
	CardLast4        *string `json:"card_last4,omitempty"`
	ErrorCode        *string `json:"error_code,omitempty"`
	ErrorDescription *string `json:"error_description,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at,omitempty"`
}

// View shapes the public projection. Method-specific fields are populated
// only for the matching method, error fields only after a failure.
func (p *Payment) View() *PaymentView {
	v := &PaymentView{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Method:    string(p.Method),
		Status:    string(p.Status),
		Captured:  p.Captured,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	switch p.Method {
	case MethodUPI:
		v.VPA = p.VPA
	case MethodCard:
		v.CardNetwork = p.CardNetwork
		v.CardLast4 = p.CardLast4
	}
	if p.ErrorCode != nil {
		v.ErrorCode = p.ErrorCode
		v.ErrorDescription = p.ErrorDescription
	}
	return v
}
