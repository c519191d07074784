package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nimbuspay/gateway/internal/config"
	"github.com/nimbuspay/gateway/internal/events"
	"github.com/nimbuspay/gateway/internal/models"
	"github.com/nimbuspay/gateway/internal/queue"
	"github.com/nimbuspay/gateway/internal/repository"
	"github.com/nimbuspay/gateway/internal/service"
	"github.com/nimbuspay/gateway/pkg/metrics"
)

// paymentEventPayload is the webhook and SSE payload for payment outcomes.
type paymentEventPayload struct {
	Payment *models.PaymentView `json:"payment"`
}

// PaymentProcessor settles pending payments: it simulates a settlement delay,
// decides the outcome, persists the transition, and emits the webhook plus
// dashboard event.
type PaymentProcessor struct {
	payments *repository.PaymentRepository
	orders   *repository.OrderRepository
	webhooks *service.WebhookService
	events   *events.Publisher
	cfg      config.ProcessingConfig
}

// NewPaymentProcessor creates a new PaymentProcessor.
func NewPaymentProcessor(payments *repository.PaymentRepository, orders *repository.OrderRepository, webhooks *service.WebhookService, pub *events.Publisher, cfg config.ProcessingConfig) *PaymentProcessor {
	return &PaymentProcessor{
		payments: payments,
		orders:   orders,
		webhooks: webhooks,
		events:   pub,
		cfg:      cfg,
	}
}

// Handle processes one settlement job. Redelivered jobs for payments already
// in a terminal state are no-ops.
func (p *PaymentProcessor) Handle(ctx context.Context, job *queue.Job) error {
	var payload service.PaymentJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("Malformed payment job")
		return nil
	}

	payment, err := p.payments.GetByID(payload.PaymentID)
	if errors.Is(err, sql.ErrNoRows) {
		// A queued job without a row means creation and enqueue got out of
		// sync; fail the job so the gap shows up in the queue counters.
		log.Error().Str("payment_id", payload.PaymentID).Msg("Payment missing, failing job")
		return fmt.Errorf("payment %s not found", payload.PaymentID)
	}
	if err != nil {
		return err
	}
	if payment.Status.Terminal() {
		log.Info().Str("payment_id", payment.ID).Str("status", string(payment.Status)).Msg("Payment already settled, skipping")
		return nil
	}

	if err := sleepFor(ctx, p.delay()); err != nil {
		return err
	}

	if p.succeeds(payment.Method) {
		return p.settleSuccess(ctx, payment)
	}
	return p.settleFailure(ctx, payment)
}

func (p *PaymentProcessor) settleSuccess(ctx context.Context, payment *models.Payment) error {
	ok, err := p.payments.MarkSuccess(payment.ID)
	if err != nil {
		return err
	}
	if !ok {
		// Another delivery of the same job settled it first.
		return nil
	}
	if err := p.orders.MarkPaid(payment.OrderID); err != nil {
		log.Error().Err(err).Str("order_id", payment.OrderID).Msg("Failed to mark order paid")
	}

	payment.Status = models.PaymentSuccess
	payment.UpdatedAt = time.Now().UTC()
	metrics.IncPaymentOutcome(string(payment.Method), string(payment.Status))
	log.Info().Str("payment_id", payment.ID).Str("method", string(payment.Method)).Msg("Payment succeeded")

	p.emit(ctx, models.EventPaymentSuccess, payment)
	return nil
}

func (p *PaymentProcessor) settleFailure(ctx context.Context, payment *models.Payment) error {
	ok, err := p.payments.MarkFailed(payment.ID, models.PaymentFailedCode, models.PaymentFailedDescription)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	code := models.PaymentFailedCode
	description := models.PaymentFailedDescription
	payment.Status = models.PaymentFailed
	payment.ErrorCode = &code
	payment.ErrorDescription = &description
	payment.UpdatedAt = time.Now().UTC()
	metrics.IncPaymentOutcome(string(payment.Method), string(payment.Status))
	log.Info().Str("payment_id", payment.ID).Str("method", string(payment.Method)).Msg("Payment failed")

	p.emit(ctx, models.EventPaymentFailed, payment)
	return nil
}

// emit sends the webhook and the dashboard event for a settled payment.
func (p *PaymentProcessor) emit(ctx context.Context, event string, payment *models.Payment) {
	view := payment.View()
	if _, err := p.webhooks.Notify(ctx, payment.MerchantID, event, paymentEventPayload{Payment: view}); err != nil {
		log.Error().Err(err).Str("payment_id", payment.ID).Str("event", event).Msg("Failed to queue webhook")
	}
	p.events.Publish(ctx, payment.MerchantID, event, view)
}

// delay returns the simulated settlement latency.
func (p *PaymentProcessor) delay() time.Duration {
	if p.cfg.TestMode {
		return p.cfg.TestDelay
	}
	return randomBetween(p.cfg.DelayMin, p.cfg.DelayMax)
}

// succeeds decides the settlement outcome. Deterministic in test mode,
// otherwise a weighted coin per payment method.
func (p *PaymentProcessor) succeeds(method models.PaymentMethod) bool {
	if p.cfg.TestMode {
		return p.cfg.TestPaymentSuccess
	}
	rate := p.cfg.UPISuccessRate
	if method == models.MethodCard {
		rate = p.cfg.CardSuccessRate
	}
	return rand.Float64() < rate
}

// randomBetween picks a uniform duration in [min, max].
func randomBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// sleepFor blocks for d or until ctx is canceled.
func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
