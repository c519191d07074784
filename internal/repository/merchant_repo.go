package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/nimbuspay/gateway/internal/models"
)

// MerchantRepository provides data access methods for the merchants table.
type MerchantRepository struct {
	db *sqlx.DB
}

// NewMerchantRepository creates a new MerchantRepository.
func NewMerchantRepository(db *sqlx.DB) *MerchantRepository {
	return &MerchantRepository{db: db}
}

const merchantColumns = `id, name, email, api_key, api_secret, webhook_url, webhook_secret, password_hash, is_active, created_at, updated_at`

// GetByCredentials finds a merchant by API key and secret.
func (r *MerchantRepository) GetByCredentials(apiKey, apiSecret string) (*models.Merchant, error) {
	var m models.Merchant
	err := r.db.Get(&m, `SELECT `+merchantColumns+` FROM merchants WHERE api_key = $1 AND api_secret = $2`, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID finds a merchant by id.
func (r *MerchantRepository) GetByID(id string) (*models.Merchant, error) {
	var m models.Merchant
	err := r.db.Get(&m, `SELECT `+merchantColumns+` FROM merchants WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByEmail finds a merchant by email.
func (r *MerchantRepository) GetByEmail(email string) (*models.Merchant, error) {
	var m models.Merchant
	err := r.db.Get(&m, `SELECT `+merchantColumns+` FROM merchants WHERE email = $1`, email)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// WebhookConfig is the delivery-facing slice of a merchant row.
type WebhookConfig struct {
	WebhookURL    *string `db:"webhook_url"`
	WebhookSecret *string `db:"webhook_secret"`
}

// GetWebhookConfig reads only the webhook delivery configuration.
func (r *MerchantRepository) GetWebhookConfig(id string) (*WebhookConfig, error) {
	var cfg WebhookConfig
	err := r.db.Get(&cfg, `SELECT webhook_url, webhook_secret FROM merchants WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpdateWebhook sets the webhook URL and secret for a merchant.
func (r *MerchantRepository) UpdateWebhook(id string, url, secret *string) error {
	res, err := r.db.Exec(
		`UPDATE merchants SET webhook_url = $2, webhook_secret = $3, updated_at = NOW() WHERE id = $1`,
		id, url, secret,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// Create inserts a merchant row (used by seeding).
func (r *MerchantRepository) Create(m *models.Merchant) error {
	_, err := r.db.Exec(`
		INSERT INTO merchants (id, name, email, api_key, api_secret, webhook_url, webhook_secret, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		m.ID, m.Name, m.Email, m.APIKey, m.APISecret, m.WebhookURL, m.WebhookSecret, m.PasswordHash, m.IsActive,
	)
	return err
}

// requireRowAffected converts a zero-row update into sql.ErrNoRows so callers
// can treat it as a missing entity.
func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
