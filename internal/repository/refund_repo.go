package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/nimbuspay/gateway/internal/models"
)

// RefundRepository provides data access methods for the refunds table.
type RefundRepository struct {
	db *sqlx.DB
}

// NewRefundRepository creates a new RefundRepository.
func NewRefundRepository(db *sqlx.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

// Create inserts a new refund in pending state.
func (r *RefundRepository) Create(rf *models.Refund) error {
	_, err := r.db.Exec(`
		INSERT INTO refunds (id, payment_id, merchant_id, amount, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		rf.ID, rf.PaymentID, rf.MerchantID, rf.Amount, rf.Reason, rf.Status,
	)
	if err != nil && isUniqueViolation(err) {
		return duplicateIDError{id: rf.ID}
	}
	return err
}

// GetByID finds a refund by id, unscoped (worker-side read).
func (r *RefundRepository) GetByID(id string) (*models.Refund, error) {
	var rf models.Refund
	err := r.db.Get(&rf, `SELECT * FROM refunds WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &rf, nil
}

// GetByIDForMerchant finds a refund scoped to a merchant.
func (r *RefundRepository) GetByIDForMerchant(id, merchantID string) (*models.Refund, error) {
	var rf models.Refund
	err := r.db.Get(&rf, `SELECT * FROM refunds WHERE id = $1 AND merchant_id = $2`, id, merchantID)
	if err != nil {
		return nil, err
	}
	return &rf, nil
}

// TotalRefunded sums refund amounts that count against a payment's
// refundable cap (pending and processed refunds).
func (r *RefundRepository) TotalRefunded(paymentID string) (int64, error) {
	var total int64
	err := r.db.Get(&total, `
		SELECT COALESCE(SUM(amount), 0)
		FROM refunds
		WHERE payment_id = $1 AND status IN ('pending', 'processed')`, paymentID)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// MarkProcessed transitions a pending refund to processed. The status guard
// makes job redelivery a no-op at the row level.
func (r *RefundRepository) MarkProcessed(id string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE refunds SET status = 'processed', processed_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
