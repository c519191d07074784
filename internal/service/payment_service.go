package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nimbuspay/gateway/internal/models"
	"github.com/nimbuspay/gateway/internal/queue"
	"github.com/nimbuspay/gateway/internal/repository"
	"github.com/nimbuspay/gateway/internal/utils"
)

// PaymentService handles payment creation, capture and lookup. Settlement
// itself happens asynchronously in the worker process.
type PaymentService struct {
	orders   *repository.OrderRepository
	payments *repository.PaymentRepository
	queue    queue.Enqueuer
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(orders *repository.OrderRepository, payments *repository.PaymentRepository, q queue.Enqueuer) *PaymentService {
	return &PaymentService{orders: orders, payments: payments, queue: q}
}

// CreatePaymentInput is the validated body of POST /v1/payments.
type CreatePaymentInput struct {
	OrderID string            `json:"order_id"`
	Method  string            `json:"method"`
	VPA     string            `json:"vpa"`
	Card    *models.CardInput `json:"card"`
}

// CreatePayment validates the instrument, persists a pending payment with the
// order's amount, and enqueues the settlement job. The response is returned
// immediately; status transitions arrive later via webhook.
func (s *PaymentService) CreatePayment(ctx context.Context, merchantID string, in *CreatePaymentInput) (*models.Payment, error) {
	order, err := s.orders.GetByID(in.OrderID, merchantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	details, err := s.validateMethod(in)
	if err != nil {
		return nil, err
	}

	p := &models.Payment{
		OrderID:    order.ID,
		MerchantID: merchantID,
		Amount:     order.Amount,
		Currency:   order.Currency,
		Method:     details.Method(),
		Status:     models.PaymentPending,
	}
	switch d := details.(type) {
	case *models.UPIDetails:
		p.VPA = &d.VPA
	case *models.CardDetails:
		network := string(d.Network)
		p.CardNetwork = &network
		p.CardLast4 = &d.Last4
	}

	for attempt := 0; ; attempt++ {
		p.ID = utils.GenerateID("pay_")
		err := s.payments.Create(p)
		if err == nil {
			break
		}
		if repository.IsDuplicateID(err) && attempt < maxIDAttempts {
			log.Warn().Str("payment_id", p.ID).Msg("Payment id collision, regenerating")
			continue
		}
		return nil, err
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	jobID, err := s.queue.Enqueue(ctx, queue.TopicPayment, PaymentJob{PaymentID: p.ID, Method: string(p.Method)})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("payment_id", p.ID).
		Str("order_id", order.ID).
		Str("method", string(p.Method)).
		Str("job_id", jobID).
		Msg("Payment created and queued")
	return p, nil
}

// validateMethod turns raw input into the closed method variant.
func (s *PaymentService) validateMethod(in *CreatePaymentInput) (models.MethodDetails, error) {
	switch models.PaymentMethod(in.Method) {
	case models.MethodUPI:
		return models.NewUPIDetails(in.VPA)
	case models.MethodCard:
		return models.NewCardDetails(in.Card, time.Now())
	default:
		return nil, utils.ErrInvalidMethod
	}
}

// GetPayment returns a payment scoped to the calling merchant.
func (s *PaymentService) GetPayment(id, merchantID string) (*models.Payment, error) {
	p, err := s.payments.GetByIDForMerchant(id, merchantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPaymentPublic returns a payment without merchant scoping, for checkout
// status polling.
func (s *PaymentService) GetPaymentPublic(id string) (*models.Payment, error) {
	p, err := s.payments.GetByID(id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CapturePayment marks a successful payment as captured. A zero amount
// captures the full payment; a supplied amount must match the payment
// amount exactly, partial capture is not supported.
func (s *PaymentService) CapturePayment(id, merchantID string, amount int64) (*models.Payment, error) {
	p, err := s.payments.GetByIDForMerchant(id, merchantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.Status != models.PaymentSuccess {
		return nil, utils.ErrNotCapturable
	}
	if p.Captured {
		return nil, utils.ErrAlreadyCaptured
	}
	if amount != 0 && amount != p.Amount {
		return nil, utils.ErrCaptureAmountMismatch
	}

	ok, err := s.payments.Capture(id, merchantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a concurrent capture race between the read and the update.
		return nil, utils.ErrAlreadyCaptured
	}

	p.Captured = true
	p.UpdatedAt = time.Now().UTC()
	log.Info().Str("payment_id", id).Str("merchant_id", merchantID).Msg("Payment captured")
	return p, nil
}

// ListPayments returns all payments for a merchant, newest first.
func (s *PaymentService) ListPayments(merchantID string) ([]models.Payment, error) {
	return s.payments.ListByMerchant(merchantID)
}

// Stats aggregates the merchant's payment counters for the dashboard.
func (s *PaymentService) Stats(merchantID string) (*repository.MerchantStats, error) {
	return s.payments.StatsByMerchant(merchantID)
}
