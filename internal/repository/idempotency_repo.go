package repository

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nimbuspay/gateway/internal/models"
)

// IdempotencyRepository provides data access methods for the
// idempotency_keys table.
type IdempotencyRepository struct {
	db *sqlx.DB
}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(db *sqlx.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Get fetches the record for a key+merchant pair, expired or not.
func (r *IdempotencyRepository) Get(key, merchantID string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	err := r.db.Get(&rec, `
		SELECT key, merchant_id, response, created_at, expires_at
		FROM idempotency_keys
		WHERE key = $1 AND merchant_id = $2`, key, merchantID)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes the record for a key+merchant pair.
func (r *IdempotencyRepository) Delete(key, merchantID string) error {
	_, err := r.db.Exec(`DELETE FROM idempotency_keys WHERE key = $1 AND merchant_id = $2`, key, merchantID)
	return err
}

// Upsert stores a cached response, overwriting any existing record for the
// same key+merchant pair.
func (r *IdempotencyRepository) Upsert(key, merchantID string, response json.RawMessage, expiresAt time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO idempotency_keys (key, merchant_id, response, created_at, expires_at)
		VALUES ($1, $2, $3, NOW(), $4)
		ON CONFLICT (key, merchant_id)
		DO UPDATE SET response = $3, expires_at = $4`,
		key, merchantID, response, expiresAt,
	)
	return err
}
