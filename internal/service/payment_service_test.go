package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuspay/gateway/internal/models"
	"github.com/nimbuspay/gateway/internal/queue"
	"github.com/nimbuspay/gateway/internal/repository"
	"github.com/nimbuspay/gateway/internal/utils"
)

func newPaymentService(db *sqlx.DB, q queue.Enqueuer) *PaymentService {
	return NewPaymentService(
		repository.NewOrderRepository(db),
		repository.NewPaymentRepository(db),
		q,
	)
}

var orderColumns = []string{
	"id", "merchant_id", "amount", "currency", "receipt", "notes", "status", "created_at", "updated_at",
}

var paymentColumns = []string{
	"id", "order_id", "merchant_id", "amount", "currency", "method", "status", "captured",
	"vpa", "card_network", "card_last4", "error_code", "error_description", "created_at", "updated_at",
}

func orderRow(id, merchantID string, amount int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(orderColumns).
		AddRow(id, merchantID, amount, "INR", nil, nil, "created", now, now)
}

func paymentRow(id, merchantID string, amount int64, status string, captured bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(paymentColumns).
		AddRow(id, "order_1", merchantID, amount, "INR", "upi", status, captured,
			"alice@upi", nil, nil, nil, nil, now, now)
}

func TestCreatePaymentUPI(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT \\* FROM orders WHERE id").
		WillReturnRows(orderRow("order_1", "m_1", 5000))
	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	q := &fakeEnqueuer{}
	svc := newPaymentService(db, q)

	p, err := svc.CreatePayment(context.Background(), "m_1", &CreatePaymentInput{
		OrderID: "order_1",
		Method:  "upi",
		VPA:     "alice@upi",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Contains(t, p.ID, "pay_")
	assert.Equal(t, models.PaymentPending, p.Status)
	assert.Equal(t, int64(5000), p.Amount)
	require.NotNil(t, p.VPA)
	assert.Equal(t, "alice@upi", *p.VPA)
	assert.Nil(t, p.CardNetwork)

	require.Len(t, q.calls, 1)
	assert.Equal(t, queue.TopicPayment, q.calls[0].topic)
	var job PaymentJob
	require.NoError(t, json.Unmarshal(q.calls[0].payload, &job))
	assert.Equal(t, p.ID, job.PaymentID)
	assert.Equal(t, "upi", job.Method)
}

func TestCreatePaymentCardStoresOnlyDerivedFields(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT \\* FROM orders WHERE id").
		WillReturnRows(orderRow("order_1", "m_1", 9900))
	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc := newPaymentService(db, &fakeEnqueuer{})

	p, err := svc.CreatePayment(context.Background(), "m_1", &CreatePaymentInput{
		OrderID: "order_1",
		Method:  "card",
		Card: &models.CardInput{
			Number:      "5555555555554444",
			ExpiryMonth: "12",
			ExpiryYear:  "30",
			CVV:         "123",
			HolderName:  "Alice",
		},
	})
	require.NoError(t, err)

	require.NotNil(t, p.CardNetwork)
	assert.Equal(t, "mastercard", *p.CardNetwork)
	require.NotNil(t, p.CardLast4)
	assert.Equal(t, "4444", *p.CardLast4)
	assert.Nil(t, p.VPA)
}

func TestCreatePaymentValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   CreatePaymentInput
		wantErr error
	}{
		{"unknown method", CreatePaymentInput{OrderID: "order_1", Method: "netbanking"}, utils.ErrInvalidMethod},
		{"missing vpa", CreatePaymentInput{OrderID: "order_1", Method: "upi"}, utils.ErrMissingVPA},
		{"bad vpa", CreatePaymentInput{OrderID: "order_1", Method: "upi", VPA: "nope"}, utils.ErrInvalidVPA},
		{"missing card", CreatePaymentInput{OrderID: "order_1", Method: "card"}, utils.ErrMissingCardDetails},
		{
			"bad luhn",
			CreatePaymentInput{OrderID: "order_1", Method: "card", Card: &models.CardInput{
				Number: "4111111111111112", ExpiryMonth: "12", ExpiryYear: "30", CVV: "123", HolderName: "A",
			}},
			utils.ErrInvalidCard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectQuery("SELECT \\* FROM orders WHERE id").
				WillReturnRows(orderRow("order_1", "m_1", 5000))

			q := &fakeEnqueuer{}
			svc := newPaymentService(db, q)
			_, err := svc.CreatePayment(context.Background(), "m_1", &tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, q.calls)
		})
	}
}

func TestCreatePaymentOrderNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM orders WHERE id").WillReturnError(sql.ErrNoRows)

	svc := newPaymentService(db, &fakeEnqueuer{})
	_, err := svc.CreatePayment(context.Background(), "m_1", &CreatePaymentInput{
		OrderID: "order_missing", Method: "upi", VPA: "alice@upi",
	})
	assert.ErrorIs(t, err, utils.ErrOrderNotFound)
}

func TestCapturePayment(t *testing.T) {
	t.Run("amount mismatch", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM payments WHERE id").
			WillReturnRows(paymentRow("pay_1", "m_1", 5000, "success", false))

		svc := newPaymentService(db, &fakeEnqueuer{})
		_, err := svc.CapturePayment("pay_1", "m_1", 4000)
		assert.ErrorIs(t, err, utils.ErrCaptureAmountMismatch)
	})

	t.Run("not successful yet", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM payments WHERE id").
			WillReturnRows(paymentRow("pay_1", "m_1", 5000, "pending", false))

		svc := newPaymentService(db, &fakeEnqueuer{})
		_, err := svc.CapturePayment("pay_1", "m_1", 5000)
		assert.ErrorIs(t, err, utils.ErrNotCapturable)
	})

	t.Run("already captured", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM payments WHERE id").
			WillReturnRows(paymentRow("pay_1", "m_1", 5000, "success", true))

		svc := newPaymentService(db, &fakeEnqueuer{})
		_, err := svc.CapturePayment("pay_1", "m_1", 5000)
		assert.ErrorIs(t, err, utils.ErrAlreadyCaptured)
	})

	t.Run("captures exactly once", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM payments WHERE id").
			WillReturnRows(paymentRow("pay_1", "m_1", 5000, "success", false))
		mock.ExpectExec("UPDATE payments SET captured = true").
			WithArgs("pay_1", "m_1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		svc := newPaymentService(db, &fakeEnqueuer{})
		p, err := svc.CapturePayment("pay_1", "m_1", 5000)
		require.NoError(t, err)
		assert.True(t, p.Captured)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("omitted amount captures full payment", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM payments WHERE id").
			WillReturnRows(paymentRow("pay_1", "m_1", 5000, "success", false))
		mock.ExpectExec("UPDATE payments SET captured = true").
			WithArgs("pay_1", "m_1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		svc := newPaymentService(db, &fakeEnqueuer{})
		p, err := svc.CapturePayment("pay_1", "m_1", 0)
		require.NoError(t, err)
		assert.True(t, p.Captured)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost capture race", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM payments WHERE id").
			WillReturnRows(paymentRow("pay_1", "m_1", 5000, "success", false))
		mock.ExpectExec("UPDATE payments SET captured = true").
			WillReturnResult(sqlmock.NewResult(0, 0))

		svc := newPaymentService(db, &fakeEnqueuer{})
		_, err := svc.CapturePayment("pay_1", "m_1", 5000)
		assert.ErrorIs(t, err, utils.ErrAlreadyCaptured)
	})
}
