package models

import (
	"encoding/json"
	"time"
)

type OrderStatus string

const (
	OrderCreated OrderStatus = "created"
	OrderPaid    OrderStatus = "paid"
)

// Order is the merchant-created intent a payment is made against.
// Amount is in minor currency units (paise for INR).
type Order struct {
	ID         string          `db:"id" json:"id"`
	MerchantID string          `db:"merchant_id" json:"merchant_id"`
	Amount     int64           `db:"amount" json:"amount"`
	Currency   string          `db:"currency" json:"currency"`
	Receipt    *string         `db:"receipt" json:"receipt,omitempty"`
	Notes      json.RawMessage `db:"notes" json:"notes,omitempty"`
	Status     OrderStatus     `db:"status" json:"status"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}
