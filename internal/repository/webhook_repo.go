package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/nimbuspay/gateway/internal/models"
)

// WebhookLogRepository provides data access methods for the webhook_logs table.
type WebhookLogRepository struct {
	db *sqlx.DB
}

// NewWebhookLogRepository creates a new WebhookLogRepository.
func NewWebhookLogRepository(db *sqlx.DB) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

// Create inserts a new webhook log in pending state with zero attempts.
func (r *WebhookLogRepository) Create(l *models.WebhookLog) error {
	_, err := r.db.Exec(`
		INSERT INTO webhook_logs (id, merchant_id, event, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		l.ID, l.MerchantID, l.Event, l.Payload, l.Status, l.Attempts,
	)
	return err
}

// GetByID finds a webhook log by id, unscoped (worker-side read).
func (r *WebhookLogRepository) GetByID(id string) (*models.WebhookLog, error) {
	var l models.WebhookLog
	err := r.db.Get(&l, `SELECT * FROM webhook_logs WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByIDForMerchant finds a webhook log scoped to a merchant.
func (r *WebhookLogRepository) GetByIDForMerchant(id, merchantID string) (*models.WebhookLog, error) {
	var l models.WebhookLog
	err := r.db.Get(&l, `SELECT * FROM webhook_logs WHERE id = $1 AND merchant_id = $2`, id, merchantID)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// RecordAttempt persists the outcome of one delivery attempt: the new status
// and attempts counter, the response snapshot, and the retry schedule.
func (r *WebhookLogRepository) RecordAttempt(l *models.WebhookLog) error {
	res, err := r.db.Exec(`
		UPDATE webhook_logs SET
			status = $2,
			attempts = $3,
			last_attempt_at = NOW(),
			next_retry_at = $4,
			response_code = $5,
			response_body = $6
		WHERE id = $1`,
		l.ID, l.Status, l.Attempts, l.NextRetryAt, l.ResponseCode, l.ResponseBody,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// MarkFailed terminally fails a log without an HTTP attempt (e.g. missing
// webhook URL), recording an explanatory body.
func (r *WebhookLogRepository) MarkFailed(id, responseBody string) error {
	res, err := r.db.Exec(`
		UPDATE webhook_logs SET status = 'failed', response_body = $2 WHERE id = $1`,
		id, responseBody,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// ResetForRetry rearms a log for manual retry: pending status, attempts back
// to zero, schedule cleared.
func (r *WebhookLogRepository) ResetForRetry(id string) error {
	res, err := r.db.Exec(`
		UPDATE webhook_logs SET status = 'pending', attempts = 0, next_retry_at = NULL WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// ListByMerchant returns a page of webhook logs for a merchant, newest first.
func (r *WebhookLogRepository) ListByMerchant(merchantID string, limit, offset int) ([]models.WebhookLog, error) {
	var logs []models.WebhookLog
	err := r.db.Select(&logs, `
		SELECT * FROM webhook_logs
		WHERE merchant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, merchantID, limit, offset)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// CountByMerchant returns the total number of webhook logs for a merchant.
func (r *WebhookLogRepository) CountByMerchant(merchantID string) (int64, error) {
	var total int64
	err := r.db.Get(&total, `SELECT COUNT(*) FROM webhook_logs WHERE merchant_id = $1`, merchantID)
	if err != nil {
		return 0, err
	}
	return total, nil
}
