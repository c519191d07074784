package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuspay/gateway/internal/config"
	"github.com/nimbuspay/gateway/internal/models"
	"github.com/nimbuspay/gateway/internal/queue"
	"github.com/nimbuspay/gateway/internal/repository"
	"github.com/nimbuspay/gateway/internal/utils"
)

// fakeEnqueuer records enqueue calls instead of touching Redis.
type fakeEnqueuer struct {
	calls []enqueueCall
}

type enqueueCall struct {
	topic   string
	payload []byte
	delay   time.Duration
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, topic string, payload any, opts ...queue.EnqueueOption) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	f.calls = append(f.calls, enqueueCall{topic: topic, payload: body, delay: queue.DelayOf(opts...)})
	return "job_test", nil
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func testWebhookConfig() config.WebhookConfig {
	return config.WebhookConfig{
		Timeout:     2 * time.Second,
		MaxAttempts: 5,
		RetryLadder: []time.Duration{0, time.Minute, 5 * time.Minute, 30 * time.Minute, 2 * time.Hour},
	}
}

func newWebhookService(db *sqlx.DB, q queue.Enqueuer, cfg config.WebhookConfig) *WebhookService {
	return NewWebhookService(
		repository.NewWebhookLogRepository(db),
		repository.NewMerchantRepository(db),
		q,
		cfg,
	)
}

var webhookLogColumns = []string{
	"id", "merchant_id", "event", "payload", "status", "attempts",
	"last_attempt_at", "next_retry_at", "response_code", "response_body", "created_at",
}

func pendingLogRow(id, merchantID, event string, attempts int) *sqlmock.Rows {
	return sqlmock.NewRows(webhookLogColumns).AddRow(
		id, merchantID, event, []byte(`{"payment":{"id":"pay_1"}}`), "pending", attempts,
		nil, nil, nil, nil, time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC),
	)
}

func expectWebhookConfig(mock sqlmock.Sqlmock, url, secret *string) {
	mock.ExpectQuery("SELECT webhook_url, webhook_secret FROM merchants").
		WillReturnRows(sqlmock.NewRows([]string{"webhook_url", "webhook_secret"}).AddRow(url, secret))
}

func TestDeliverSuccess(t *testing.T) {
	var (
		gotSignature string
		gotEvent     string
		gotBody      []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Webhook-Signature")
		gotEvent = r.Header.Get("X-Webhook-Event")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	db, mock := newMockDB(t)
	secret := "whsec_test_abc123"

	mock.ExpectQuery("SELECT \\* FROM webhook_logs WHERE id").
		WillReturnRows(pendingLogRow("wh_1", "m_1", models.EventPaymentSuccess, 0))
	expectWebhookConfig(mock, &srv.URL, &secret)
	mock.ExpectExec("UPDATE webhook_logs SET").
		WithArgs("wh_1", string(models.WebhookSuccess), 1, nil, 200, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	q := &fakeEnqueuer{}
	svc := newWebhookService(db, q, testWebhookConfig())

	require.NoError(t, svc.Deliver(context.Background(), "wh_1"))
	require.NoError(t, mock.ExpectationsWereMet())

	// No retry scheduled on success.
	assert.Empty(t, q.calls)

	// The signature must verify against the exact bytes sent.
	assert.Equal(t, models.EventPaymentSuccess, gotEvent)
	assert.True(t, utils.VerifySignature(gotBody, gotSignature, secret))

	var envelope struct {
		Event     string          `json:"event"`
		Timestamp int64           `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &envelope))
	assert.Equal(t, models.EventPaymentSuccess, envelope.Event)
	assert.JSONEq(t, `{"payment":{"id":"pay_1"}}`, string(envelope.Data))

	// The envelope carries the attempt time, not the log's created_at, so a
	// retried old log still passes merchant freshness checks.
	assert.InDelta(t, float64(time.Now().Unix()), float64(envelope.Timestamp), 5)
	createdAt := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC).Unix()
	assert.NotEqual(t, createdAt, envelope.Timestamp)
}

func TestDeliverFailureSchedulesRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	db, mock := newMockDB(t)
	secret := "whsec_test_abc123"

	mock.ExpectQuery("SELECT \\* FROM webhook_logs WHERE id").
		WillReturnRows(pendingLogRow("wh_1", "m_1", models.EventPaymentFailed, 0))
	expectWebhookConfig(mock, &srv.URL, &secret)
	mock.ExpectExec("UPDATE webhook_logs SET").
		WithArgs("wh_1", string(models.WebhookPending), 1, sqlmock.AnyArg(), 500, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	q := &fakeEnqueuer{}
	svc := newWebhookService(db, q, testWebhookConfig())

	require.NoError(t, svc.Deliver(context.Background(), "wh_1"))
	require.NoError(t, mock.ExpectationsWereMet())

	// First retry waits one minute.
	require.Len(t, q.calls, 1)
	assert.Equal(t, queue.TopicWebhook, q.calls[0].topic)
	assert.Equal(t, time.Minute, q.calls[0].delay)

	var job WebhookJob
	require.NoError(t, json.Unmarshal(q.calls[0].payload, &job))
	assert.Equal(t, "wh_1", job.WebhookLogID)
}

func TestDeliverRetryLadder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ladder := testWebhookConfig().RetryLadder
	wantDelays := map[int]time.Duration{
		1: ladder[1],
		2: ladder[2],
		3: ladder[3],
		4: ladder[4],
	}

	for priorAttempts, want := range wantDelays {
		db, mock := newMockDB(t)
		secret := "whsec_test_abc123"

		mock.ExpectQuery("SELECT \\* FROM webhook_logs WHERE id").
			WillReturnRows(pendingLogRow("wh_1", "m_1", models.EventPaymentSuccess, priorAttempts-1))
		expectWebhookConfig(mock, &srv.URL, &secret)
		mock.ExpectExec("UPDATE webhook_logs SET").
			WillReturnResult(sqlmock.NewResult(0, 1))

		q := &fakeEnqueuer{}
		svc := newWebhookService(db, q, testWebhookConfig())

		require.NoError(t, svc.Deliver(context.Background(), "wh_1"))
		require.Len(t, q.calls, 1, "attempt %d", priorAttempts)
		assert.Equal(t, want, q.calls[0].delay, "attempt %d", priorAttempts)
	}
}

func TestDeliverExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	db, mock := newMockDB(t)
	secret := "whsec_test_abc123"

	// Four attempts already spent: this failure is terminal.
	mock.ExpectQuery("SELECT \\* FROM webhook_logs WHERE id").
		WillReturnRows(pendingLogRow("wh_1", "m_1", models.EventPaymentSuccess, 4))
	expectWebhookConfig(mock, &srv.URL, &secret)
	mock.ExpectExec("UPDATE webhook_logs SET").
		WithArgs("wh_1", string(models.WebhookFailed), 5, nil, 500, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	q := &fakeEnqueuer{}
	svc := newWebhookService(db, q, testWebhookConfig())

	require.NoError(t, svc.Deliver(context.Background(), "wh_1"))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, q.calls)
}

func TestDeliverWithoutURLFailsImmediately(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT \\* FROM webhook_logs WHERE id").
		WillReturnRows(pendingLogRow("wh_1", "m_1", models.EventPaymentSuccess, 0))
	expectWebhookConfig(mock, nil, nil)
	mock.ExpectExec("UPDATE webhook_logs SET status = 'failed'").
		WithArgs("wh_1", "Webhook URL not configured").
		WillReturnResult(sqlmock.NewResult(0, 1))

	q := &fakeEnqueuer{}
	svc := newWebhookService(db, q, testWebhookConfig())

	require.NoError(t, svc.Deliver(context.Background(), "wh_1"))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, q.calls)
}

func TestDeliverTerminalLogIsNoOp(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows(webhookLogColumns).AddRow(
		"wh_1", "m_1", models.EventPaymentSuccess, []byte(`{}`), "success", 1,
		time.Now(), nil, 200, "ok", time.Now(),
	)
	mock.ExpectQuery("SELECT \\* FROM webhook_logs WHERE id").WillReturnRows(rows)

	q := &fakeEnqueuer{}
	svc := newWebhookService(db, q, testWebhookConfig())

	require.NoError(t, svc.Deliver(context.Background(), "wh_1"))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, q.calls)
}

func TestDeliverMissingMerchantDropsJob(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT \\* FROM webhook_logs WHERE id").
		WillReturnRows(pendingLogRow("wh_1", "m_gone", models.EventPaymentSuccess, 0))
	mock.ExpectQuery("SELECT webhook_url, webhook_secret FROM merchants").
		WillReturnError(sql.ErrNoRows)

	// A deleted merchant is not an infrastructure failure; the job is dropped
	// without touching the log or scheduling a retry.
	q := &fakeEnqueuer{}
	svc := newWebhookService(db, q, testWebhookConfig())

	require.NoError(t, svc.Deliver(context.Background(), "wh_1"))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, q.calls)
}

func TestRetryResetsAndRequeues(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows(webhookLogColumns).AddRow(
		"wh_1", "m_1", models.EventPaymentSuccess, []byte(`{}`), "failed", 5,
		time.Now(), nil, 500, "err", time.Now(),
	)
	mock.ExpectQuery("SELECT \\* FROM webhook_logs WHERE id = \\$1 AND merchant_id").WillReturnRows(rows)
	mock.ExpectExec("UPDATE webhook_logs SET status = 'pending', attempts = 0").
		WithArgs("wh_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	q := &fakeEnqueuer{}
	svc := newWebhookService(db, q, testWebhookConfig())

	l, err := svc.Retry(context.Background(), "wh_1", "m_1")
	require.NoError(t, err)
	assert.Equal(t, models.WebhookPending, l.Status)
	assert.Equal(t, 0, l.Attempts)

	require.Len(t, q.calls, 1)
	assert.Equal(t, queue.TopicWebhook, q.calls[0].topic)
	assert.Equal(t, time.Duration(0), q.calls[0].delay)
}

func TestSendTestRequiresConfiguredURL(t *testing.T) {
	db, mock := newMockDB(t)
	expectWebhookConfig(mock, nil, nil)

	svc := newWebhookService(db, &fakeEnqueuer{}, testWebhookConfig())
	_, err := svc.SendTest(context.Background(), "m_1")
	assert.ErrorIs(t, err, utils.ErrWebhookNotConfigured)
}
