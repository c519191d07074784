package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuspay/gateway/internal/config"
	"github.com/nimbuspay/gateway/internal/models"
	"github.com/nimbuspay/gateway/internal/queue"
	"github.com/nimbuspay/gateway/internal/repository"
	"github.com/nimbuspay/gateway/internal/service"
)

var refundColumns = []string{
	"id", "payment_id", "merchant_id", "amount", "reason", "status", "created_at", "processed_at",
}

func newTestRefundProcessor(d processorDeps) *RefundProcessor {
	webhooks := service.NewWebhookService(
		repository.NewWebhookLogRepository(d.db),
		repository.NewMerchantRepository(d.db),
		d.q,
		config.WebhookConfig{Timeout: time.Second, MaxAttempts: 5, RetryLadder: []time.Duration{0, time.Minute}},
	)
	return NewRefundProcessor(
		repository.NewRefundRepository(d.db),
		webhooks,
		d.pub,
		testProcessingConfig(true),
	)
}

func refundJob(t *testing.T) *queue.Job {
	t.Helper()
	payload, err := json.Marshal(service.RefundJob{RefundID: "rfnd_1"})
	require.NoError(t, err)
	return &queue.Job{ID: "job_1", Topic: queue.TopicRefund, Payload: payload}
}

func TestRefundProcessorProcessesRefund(t *testing.T) {
	d := newProcessorDeps(t)

	d.mock.ExpectQuery("SELECT \\* FROM refunds WHERE id").
		WillReturnRows(sqlmock.NewRows(refundColumns).
			AddRow("rfnd_1", "pay_1", "m_1", 2000, nil, "pending", time.Now(), nil))
	d.mock.ExpectExec("UPDATE refunds SET status = 'processed'").
		WithArgs("rfnd_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	d.mock.ExpectExec("INSERT INTO webhook_logs").
		WithArgs(sqlmock.AnyArg(), "m_1", models.EventRefundProcessed, sqlmock.AnyArg(), string(models.WebhookPending), 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	proc := newTestRefundProcessor(d)
	require.NoError(t, proc.Handle(context.Background(), refundJob(t)))
	require.NoError(t, d.mock.ExpectationsWereMet())

	require.Len(t, d.q.calls, 1)
	assert.Equal(t, queue.TopicWebhook, d.q.calls[0].topic)
}

func TestRefundProcessorProcessedRefundIsNoOp(t *testing.T) {
	d := newProcessorDeps(t)

	now := time.Now()
	d.mock.ExpectQuery("SELECT \\* FROM refunds WHERE id").
		WillReturnRows(sqlmock.NewRows(refundColumns).
			AddRow("rfnd_1", "pay_1", "m_1", 2000, nil, "processed", now, now))

	proc := newTestRefundProcessor(d)
	require.NoError(t, proc.Handle(context.Background(), refundJob(t)))
	require.NoError(t, d.mock.ExpectationsWereMet())
	assert.Empty(t, d.q.calls)
}

func TestRefundProcessorMissingRefundFailsJob(t *testing.T) {
	d := newProcessorDeps(t)

	d.mock.ExpectQuery("SELECT \\* FROM refunds WHERE id").WillReturnError(sql.ErrNoRows)

	proc := newTestRefundProcessor(d)
	require.Error(t, proc.Handle(context.Background(), refundJob(t)))
	require.NoError(t, d.mock.ExpectationsWereMet())
	assert.Empty(t, d.q.calls)
}

func TestRefundProcessorLostRace(t *testing.T) {
	d := newProcessorDeps(t)

	d.mock.ExpectQuery("SELECT \\* FROM refunds WHERE id").
		WillReturnRows(sqlmock.NewRows(refundColumns).
			AddRow("rfnd_1", "pay_1", "m_1", 2000, nil, "pending", time.Now(), nil))
	d.mock.ExpectExec("UPDATE refunds SET status = 'processed'").
		WillReturnResult(sqlmock.NewResult(0, 0))

	proc := newTestRefundProcessor(d)
	require.NoError(t, proc.Handle(context.Background(), refundJob(t)))
	require.NoError(t, d.mock.ExpectationsWereMet())
	assert.Empty(t, d.q.calls)
}
