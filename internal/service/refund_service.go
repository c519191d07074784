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

// RefundService handles refund creation and lookup. Refund settlement happens
// asynchronously in the worker process.
type RefundService struct {
	payments *repository.PaymentRepository
	refunds  *repository.RefundRepository
	queue    queue.Enqueuer
}

// NewRefundService creates a new RefundService.
func NewRefundService(payments *repository.PaymentRepository, refunds *repository.RefundRepository, q queue.Enqueuer) *RefundService {
	return &RefundService{payments: payments, refunds: refunds, queue: q}
}

// CreateRefundInput is the validated body of POST /v1/payments/:id/refund.
type CreateRefundInput struct {
	Amount int64   `json:"amount"`
	Reason *string `json:"reason"`
}

// CreateRefund validates the refundable amount and persists a pending refund.
// Pending refunds already count against the cap, so concurrent requests
// cannot together exceed the payment amount once each has been created.
func (s *RefundService) CreateRefund(ctx context.Context, merchantID, paymentID string, in *CreateRefundInput) (*models.Refund, error) {
	p, err := s.payments.GetByIDForMerchant(paymentID, merchantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.Status != models.PaymentSuccess {
		return nil, utils.ErrNotRefundable
	}
	if in.Amount <= 0 {
		return nil, utils.ErrInvalidAmount
	}

	refunded, err := s.refunds.TotalRefunded(paymentID)
	if err != nil {
		return nil, err
	}
	available := p.Amount - refunded

	amount := in.Amount
	if amount > available {
		return nil, utils.ErrInsufficientRefundAmount
	}

	rf := &models.Refund{
		PaymentID:  paymentID,
		MerchantID: merchantID,
		Amount:     amount,
		Reason:     in.Reason,
		Status:     models.RefundPending,
	}

	for attempt := 0; ; attempt++ {
		rf.ID = utils.GenerateID("rfnd_")
		err := s.refunds.Create(rf)
		if err == nil {
			break
		}
		if repository.IsDuplicateID(err) && attempt < maxIDAttempts {
			log.Warn().Str("refund_id", rf.ID).Msg("Refund id collision, regenerating")
			continue
		}
		return nil, err
	}
	rf.CreatedAt = time.Now().UTC()

	jobID, err := s.queue.Enqueue(ctx, queue.TopicRefund, RefundJob{RefundID: rf.ID})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("refund_id", rf.ID).
		Str("payment_id", paymentID).
		Int64("amount", amount).
		Str("job_id", jobID).
		Msg("Refund created and queued")
	return rf, nil
}

// GetRefund returns a refund scoped to the calling merchant.
func (s *RefundService) GetRefund(id, merchantID string) (*models.Refund, error) {
	rf, err := s.refunds.GetByIDForMerchant(id, merchantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrRefundNotFound
	}
	if err != nil {
		return nil, err
	}
	return rf, nil
}
