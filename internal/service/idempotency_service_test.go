package service

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuspay/gateway/internal/repository"
)

var idempotencyColumns = []string{"key", "merchant_id", "response", "created_at", "expires_at"}

func TestIdempotencyLookup(t *testing.T) {
	t.Run("unknown key", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT key, merchant_id, response").WillReturnError(sql.ErrNoRows)

		svc := NewIdempotencyService(repository.NewIdempotencyRepository(db), 24*time.Hour)
		_, ok, err := svc.Lookup("idem_1", "m_1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("live key replays response", func(t *testing.T) {
		db, mock := newMockDB(t)
		response := []byte(`{"id":"pay_1","status":"pending"}`)
		mock.ExpectQuery("SELECT key, merchant_id, response").
			WillReturnRows(sqlmock.NewRows(idempotencyColumns).
				AddRow("idem_1", "m_1", response, time.Now(), time.Now().Add(time.Hour)))

		svc := NewIdempotencyService(repository.NewIdempotencyRepository(db), 24*time.Hour)
		cached, ok, err := svc.Lookup("idem_1", "m_1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, response, []byte(cached))
	})

	t.Run("expired key is evicted lazily", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT key, merchant_id, response").
			WillReturnRows(sqlmock.NewRows(idempotencyColumns).
				AddRow("idem_1", "m_1", []byte(`{}`), time.Now().Add(-25*time.Hour), time.Now().Add(-time.Hour)))
		mock.ExpectExec("DELETE FROM idempotency_keys").
			WithArgs("idem_1", "m_1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		svc := NewIdempotencyService(repository.NewIdempotencyRepository(db), 24*time.Hour)
		_, ok, err := svc.Lookup("idem_1", "m_1")
		require.NoError(t, err)
		assert.False(t, ok)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIdempotencyStore(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO idempotency_keys").
		WithArgs("idem_1", "m_1", []byte(`{"id":"pay_1"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc := NewIdempotencyService(repository.NewIdempotencyRepository(db), 24*time.Hour)
	require.NoError(t, svc.Store("idem_1", "m_1", []byte(`{"id":"pay_1"}`)))
	require.NoError(t, mock.ExpectationsWereMet())
}
