package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/nimbuspay/gateway/internal/models"
)

// PaymentRepository provides data access methods for the payments table.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a new payment in pending state. A primary-key conflict
// surfaces as a duplicate-id error so the caller can regenerate.
func (r *PaymentRepository) Create(p *models.Payment) error {
	_, err := r.db.Exec(`
		INSERT INTO payments (id, order_id, merchant_id, amount, currency, method, status, captured, vpa, card_network, card_last4, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())`,
		p.ID, p.OrderID, p.MerchantID, p.Amount, p.Currency, p.Method, p.Status, p.Captured, p.VPA, p.CardNetwork, p.CardLast4,
	)
	if err != nil && isUniqueViolation(err) {
		return duplicateIDError{id: p.ID}
	}
	return err
}

// GetByID finds a payment by id, unscoped (worker-side read).
func (r *PaymentRepository) GetByID(id string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Get(&p, `SELECT * FROM payments WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDForMerchant finds a payment scoped to a merchant.
func (r *PaymentRepository) GetByIDForMerchant(id, merchantID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Get(&p, `SELECT * FROM payments WHERE id = $1 AND merchant_id = $2`, id, merchantID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkSuccess transitions a pending payment to success. The status guard
// makes job redelivery a no-op at the row level.
func (r *PaymentRepository) MarkSuccess(id string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE payments SET status = 'success', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkFailed transitions a pending payment to failed with a fixed error
// code/description.
func (r *PaymentRepository) MarkFailed(id, code, description string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE payments SET status = 'failed', error_code = $2, error_description = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id, code, description)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Capture marks a successful, uncaptured payment as captured. Returns false
// when the payment is not in a capturable state.
func (r *PaymentRepository) Capture(id, merchantID string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE payments SET captured = true, updated_at = NOW()
		WHERE id = $1 AND merchant_id = $2 AND status = 'success' AND captured = false`,
		id, merchantID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListByMerchant returns all payments for a merchant, newest first.
func (r *PaymentRepository) ListByMerchant(merchantID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Select(&payments, `SELECT * FROM payments WHERE merchant_id = $1 ORDER BY created_at DESC`, merchantID)
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// MerchantStats is the dashboard aggregate projection over payments.
type MerchantStats struct {
	TotalTransactions  int64 `db:"total_transactions" json:"total_transactions"`
	TotalAmount        int64 `db:"total_amount" json:"total_amount"`
	SuccessfulPayments int64 `db:"successful_payments" json:"successful_payments"`
	TotalPayments      int64 `db:"total_payments" json:"total_payments"`
}

// StatsByMerchant aggregates payment counts and the settled amount.
func (r *PaymentRepository) StatsByMerchant(merchantID string) (*MerchantStats, error) {
	var stats MerchantStats
	err := r.db.Get(&stats, `
		SELECT
			COUNT(*) AS total_transactions,
			COALESCE(SUM(CASE WHEN status = 'success' THEN amount ELSE 0 END), 0) AS total_amount,
			COUNT(CASE WHEN status = 'success' THEN 1 END) AS successful_payments,
			COUNT(*) AS total_payments
		FROM payments
		WHERE merchant_id = $1`, merchantID)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
