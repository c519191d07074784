package models

import (
	"encoding/json"
	"time"
)

// IdempotencyRecord caches the response of a completed request under a
// client-supplied key. At most one live record exists per key+merchant;
// expired rows are deleted lazily on lookup.
type IdempotencyRecord struct {
	Key        string          `db:"key"`
	MerchantID string          `db:"merchant_id"`
	Response   json.RawMessage `db:"response"`
	CreatedAt  time.Time       `db:"created_at"`
	ExpiresAt  time.Time       `db:"expires_at"`
}
