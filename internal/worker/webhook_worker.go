package worker

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/nimbuspay/gateway/internal/queue"
	"github.com/nimbuspay/gateway/internal/service"
)

// WebhookWorker drains the delivery topic. All retry and attempt accounting
// lives in the webhook service; this is just the queue adapter.
type WebhookWorker struct {
	webhooks *service.WebhookService
}

// NewWebhookWorker creates a new WebhookWorker.
func NewWebhookWorker(webhooks *service.WebhookService) *WebhookWorker {
	return &WebhookWorker{webhooks: webhooks}
}

// Handle performs one delivery attempt.
func (w *WebhookWorker) Handle(ctx context.Context, job *queue.Job) error {
	var payload service.WebhookJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("Malformed webhook job")
		return nil
	}
	return w.webhooks.Deliver(ctx, payload.WebhookLogID)
}
