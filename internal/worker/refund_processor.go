package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nimbuspay/gateway/internal/config"
	"github.com/nimbuspay/gateway/internal/events"
	"github.com/nimbuspay/gateway/internal/models"
	"github.com/nimbuspay/gateway/internal/queue"
	"github.com/nimbuspay/gateway/internal/repository"
	"github.com/nimbuspay/gateway/internal/service"
)

// refundEventPayload is the webhook and SSE payload for processed refunds.
type refundEventPayload struct {
	Refund *models.RefundView `json:"refund"`
}

// RefundProcessor settles pending refunds after a short simulated delay.
// Refunds always succeed; only the timing is simulated.
type RefundProcessor struct {
	refunds  *repository.RefundRepository
	webhooks *service.WebhookService
	events   *events.Publisher
	cfg      config.ProcessingConfig
}

// NewRefundProcessor creates a new RefundProcessor.
func NewRefundProcessor(refunds *repository.RefundRepository, webhooks *service.WebhookService, pub *events.Publisher, cfg config.ProcessingConfig) *RefundProcessor {
	return &RefundProcessor{
		refunds:  refunds,
		webhooks: webhooks,
		events:   pub,
		cfg:      cfg,
	}
}

// Handle processes one refund job. Redelivered jobs for refunds already
// processed are no-ops.
func (p *RefundProcessor) Handle(ctx context.Context, job *queue.Job) error {
	var payload service.RefundJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("Malformed refund job")
		return nil
	}

	refund, err := p.refunds.GetByID(payload.RefundID)
	if errors.Is(err, sql.ErrNoRows) {
		// A queued job without a row means creation and enqueue got out of
		// sync; fail the job so the gap shows up in the queue counters.
		log.Error().Str("refund_id", payload.RefundID).Msg("Refund missing, failing job")
		return fmt.Errorf("refund %s not found", payload.RefundID)
	}
	if err != nil {
		return err
	}
	if refund.Status == models.RefundProcessed {
		log.Info().Str("refund_id", refund.ID).Msg("Refund already processed, skipping")
		return nil
	}

	if err := sleepFor(ctx, p.delay()); err != nil {
		return err
	}

	ok, err := p.refunds.MarkProcessed(refund.ID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	now := time.Now().UTC()
	refund.Status = models.RefundProcessed
	refund.ProcessedAt = &now
	log.Info().Str("refund_id", refund.ID).Str("payment_id", refund.PaymentID).Int64("amount", refund.Amount).Msg("Refund processed")

	view := refund.View()
	if _, err := p.webhooks.Notify(ctx, refund.MerchantID, models.EventRefundProcessed, refundEventPayload{Refund: view}); err != nil {
		log.Error().Err(err).Str("refund_id", refund.ID).Msg("Failed to queue webhook")
	}
	p.events.Publish(ctx, refund.MerchantID, models.EventRefundProcessed, view)
	return nil
}

// delay returns the simulated refund settlement latency.
func (p *RefundProcessor) delay() time.Duration {
	if p.cfg.TestMode {
		return p.cfg.TestDelay
	}
	return randomBetween(p.cfg.RefundDelayMin, p.cfg.RefundDelayMax)
}
