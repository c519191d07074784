package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nimbuspay/gateway/internal/config"
	"github.com/nimbuspay/gateway/internal/models"
	"github.com/nimbuspay/gateway/internal/queue"
	"github.com/nimbuspay/gateway/internal/repository"
	"github.com/nimbuspay/gateway/internal/utils"
	"github.com/nimbuspay/gateway/pkg/metrics"
)

// maxResponseBodyBytes bounds the response snapshot stored per attempt.
const maxResponseBodyBytes = 1024

// noURLResponseBody is recorded when a log fails without an HTTP attempt.
const noURLResponseBody = "Webhook URL not configured"

// WebhookService owns the notification lifecycle: creating logs, delivering
// them with HMAC signing, and scheduling retries on the backoff ladder.
type WebhookService struct {
	logs      *repository.WebhookLogRepository
	merchants *repository.MerchantRepository
	queue     queue.Enqueuer
	client    *http.Client
	cfg       config.WebhookConfig
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(logs *repository.WebhookLogRepository, merchants *repository.MerchantRepository, q queue.Enqueuer, cfg config.WebhookConfig) *WebhookService {
	return &WebhookService{
		logs:      logs,
		merchants: merchants,
		queue:     q,
		client:    &http.Client{Timeout: cfg.Timeout},
		cfg:       cfg,
	}
}

// Notify records a pending webhook log and enqueues its first delivery
// attempt. The log row is the durable source of truth; losing the job only
// delays delivery until a manual retry.
func (s *WebhookService) Notify(ctx context.Context, merchantID, event string, payload any) (*models.WebhookLog, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	l := &models.WebhookLog{
		ID:         uuid.NewString(),
		MerchantID: merchantID,
		Event:      event,
		Payload:    body,
		Status:     models.WebhookPending,
	}
	if err := s.logs.Create(l); err != nil {
		return nil, err
	}

	if _, err := s.queue.Enqueue(ctx, queue.TopicWebhook, webhookJobFor(l)); err != nil {
		return nil, err
	}

	log.Info().Str("webhook_log_id", l.ID).Str("event", event).Str("merchant_id", merchantID).Msg("Webhook queued")
	return l, nil
}

// webhookJobFor builds the queue payload for one delivery attempt.
func webhookJobFor(l *models.WebhookLog) WebhookJob {
	return WebhookJob{
		WebhookLogID: l.ID,
		MerchantID:   l.MerchantID,
		Event:        l.Event,
		Payload:      l.Payload,
	}
}

// deliveryEnvelope is the body POSTed to the merchant endpoint. The signature
// header is computed over these exact bytes.
type deliveryEnvelope struct {
	Event     string          `json:"event"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Deliver performs one delivery attempt for a webhook log and records the
// outcome. An unreachable endpoint or non-2xx response schedules the next
// attempt on the retry ladder until MaxAttempts is exhausted; a returned
// error means only an infrastructure failure, never a declined delivery.
func (s *WebhookService) Deliver(ctx context.Context, webhookLogID string) error {
	l, err := s.logs.GetByID(webhookLogID)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn().Str("webhook_log_id", webhookLogID).Msg("Webhook log missing, dropping job")
		return nil
	}
	if err != nil {
		return err
	}

	// Terminal logs make redelivered jobs no-ops.
	if l.Status != models.WebhookPending {
		return nil
	}

	cfg, err := s.merchants.GetWebhookConfig(l.MerchantID)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn().Str("webhook_log_id", l.ID).Str("merchant_id", l.MerchantID).Msg("Merchant missing, dropping webhook job")
		return nil
	}
	if err != nil {
		return err
	}
	if cfg.WebhookURL == nil || *cfg.WebhookURL == "" {
		metrics.IncWebhookDelivery("failed")
		log.Warn().Str("webhook_log_id", l.ID).Str("merchant_id", l.MerchantID).Msg("Webhook URL not configured, failing log")
		return s.logs.MarkFailed(l.ID, noURLResponseBody)
	}
	secret := ""
	if cfg.WebhookSecret != nil {
		secret = *cfg.WebhookSecret
	}

	// The timestamp is taken per attempt, not from the log row, so retries
	// of an old log still pass merchant-side freshness checks.
	body, err := json.Marshal(deliveryEnvelope{
		Event:     l.Event,
		Timestamp: time.Now().UTC().Unix(),
		Data:      l.Payload,
	})
	if err != nil {
		return err
	}

	code, respBody, postErr := s.post(ctx, *cfg.WebhookURL, l.Event, body, secret)

	now := time.Now().UTC()
	l.Attempts++
	l.LastAttemptAt = &now
	l.NextRetryAt = nil
	l.ResponseCode = nil
	l.ResponseBody = nil
	if postErr != nil {
		msg := postErr.Error()
		l.ResponseBody = &msg
	} else {
		l.ResponseCode = &code
		l.ResponseBody = &respBody
	}

	if postErr == nil && code >= 200 && code < 300 {
		l.Status = models.WebhookSuccess
		metrics.IncWebhookDelivery("success")
		log.Info().Str("webhook_log_id", l.ID).Int("attempts", l.Attempts).Int("code", code).Msg("Webhook delivered")
		return s.logs.RecordAttempt(l)
	}

	if l.Attempts >= s.cfg.MaxAttempts {
		l.Status = models.WebhookFailed
		metrics.IncWebhookDelivery("failed")
		log.Warn().Str("webhook_log_id", l.ID).Int("attempts", l.Attempts).Msg("Webhook exhausted retries")
		return s.logs.RecordAttempt(l)
	}

	delay := s.retryDelay(l.Attempts)
	next := now.Add(delay)
	l.NextRetryAt = &next
	metrics.IncWebhookDelivery("retried")
	if err := s.logs.RecordAttempt(l); err != nil {
		return err
	}
	if _, err := s.queue.Enqueue(ctx, queue.TopicWebhook, webhookJobFor(l), queue.WithDelay(delay)); err != nil {
		return err
	}
	log.Info().
		Str("webhook_log_id", l.ID).
		Int("attempts", l.Attempts).
		Dur("retry_in", delay).
		Msg("Webhook attempt failed, retry scheduled")
	return nil
}

// retryDelay looks up the backoff for the attempt just recorded. The last
// ladder entry is reused if attempts somehow exceed the table.
func (s *WebhookService) retryDelay(attempts int) time.Duration {
	ladder := s.cfg.RetryLadder
	if len(ladder) == 0 {
		return time.Minute
	}
	idx := attempts
	if idx >= len(ladder) {
		idx = len(ladder) - 1
	}
	return ladder[idx]
}

// post sends one signed HTTP request and returns the status code plus a
// truncated response body snapshot.
func (s *WebhookService) post(ctx context.Context, url, event string, body []byte, secret string) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-Signature", utils.GenerateSignature(body, secret))

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	return resp.StatusCode, string(snippet), nil
}

// Retry rearms a webhook log and enqueues an immediate delivery attempt.
// Works for any non-pending log the merchant owns.
func (s *WebhookService) Retry(ctx context.Context, id, merchantID string) (*models.WebhookLog, error) {
	l, err := s.logs.GetByIDForMerchant(id, merchantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrWebhookLogNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.logs.ResetForRetry(l.ID); err != nil {
		return nil, err
	}
	l.Status = models.WebhookPending
	l.Attempts = 0
	l.NextRetryAt = nil

	if _, err := s.queue.Enqueue(ctx, queue.TopicWebhook, webhookJobFor(l)); err != nil {
		return nil, err
	}
	log.Info().Str("webhook_log_id", l.ID).Msg("Webhook retry queued")
	return l, nil
}

// SendTest emits a webhook.test event so merchants can verify their endpoint
// and signature handling. Requires a configured webhook URL.
func (s *WebhookService) SendTest(ctx context.Context, merchantID string) (*models.WebhookLog, error) {
	cfg, err := s.merchants.GetWebhookConfig(merchantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrMerchantNotFound
	}
	if err != nil {
		return nil, err
	}
	if cfg.WebhookURL == nil || *cfg.WebhookURL == "" {
		return nil, utils.ErrWebhookNotConfigured
	}

	payload := map[string]string{
		"message": "Test webhook delivery",
	}
	return s.Notify(ctx, merchantID, models.EventWebhookTest, payload)
}

// List returns a page of the merchant's webhook logs plus the total count.
func (s *WebhookService) List(merchantID string, limit, offset int) ([]models.WebhookLog, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	logs, err := s.logs.ListByMerchant(merchantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.logs.CountByMerchant(merchantID)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
