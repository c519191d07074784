package repository

import (
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nimbuspay/gateway/internal/models"
)

// ErrDuplicateID is returned when an insert hits the primary-key constraint;
// callers regenerate the id and retry.
type duplicateIDError struct{ id string }

func (e duplicateIDError) Error() string { return "duplicate id: " + e.id }

// IsDuplicateID reports whether err is a primary-key conflict from Create.
func IsDuplicateID(err error) bool {
	_, ok := err.(duplicateIDError)
	return ok
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}

// OrderRepository provides data access methods for the orders table.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new order. A primary-key conflict surfaces as a
// duplicate-id error rather than being pre-checked.
func (r *OrderRepository) Create(o *models.Order) error {
	_, err := r.db.Exec(`
		INSERT INTO orders (id, merchant_id, amount, currency, receipt, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
		o.ID, o.MerchantID, o.Amount, o.Currency, o.Receipt, o.Notes, o.Status,
	)
	if err != nil && isUniqueViolation(err) {
		return duplicateIDError{id: o.ID}
	}
	return err
}

// GetByID finds an order scoped to a merchant.
func (r *OrderRepository) GetByID(id, merchantID string) (*models.Order, error) {
	var o models.Order
	err := r.db.Get(&o, `SELECT * FROM orders WHERE id = $1 AND merchant_id = $2`, id, merchantID)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkPaid transitions a created order to paid. Already-paid orders are left
// untouched so a redelivered settlement job cannot regress anything.
func (r *OrderRepository) MarkPaid(id string) error {
	_, err := r.db.Exec(`
		UPDATE orders SET status = 'paid', updated_at = NOW()
		WHERE id = $1 AND status = 'created'`, id)
	return err
}

// GetByIDPublic finds an order without merchant scoping, for the hosted
// checkout page.
func (r *OrderRepository) GetByIDPublic(id string) (*models.Order, error) {
	var o models.Order
	err := r.db.Get(&o, `SELECT * FROM orders WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
