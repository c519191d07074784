package models

import "time"

// Merchant is an onboarded merchant account. API credentials authenticate
// server-to-server calls; the webhook fields configure outbound notifications.
type Merchant struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Email         string     `db:"email" json:"email"`
	APIKey        string     `db:"api_key" json:"-"`
	APISecret     string     `db:"api_secret" json:"-"`
	WebhookURL    *string    `db:"webhook_url" json:"webhook_url,omitempty"`
	WebhookSecret *string    `db:"webhook_secret" json:"-"`
	PasswordHash  *string    `db:"password_hash" json:"-"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
