package service

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nimbuspay/gateway/internal/repository"
)

// IdempotencyService caches payment-creation responses under client-supplied
// keys. Expiry is lazy: stale records are deleted when the key is next seen,
// after which the request is treated as new.
type IdempotencyService struct {
	repo *repository.IdempotencyRepository
	ttl  time.Duration
}

// NewIdempotencyService creates a new IdempotencyService.
func NewIdempotencyService(repo *repository.IdempotencyRepository, ttl time.Duration) *IdempotencyService {
	return &IdempotencyService{repo: repo, ttl: ttl}
}

// Lookup returns the cached response for a live key, or ok=false when the
// key is unknown or expired.
func (s *IdempotencyService) Lookup(key, merchantID string) (json.RawMessage, bool, error) {
	rec, err := s.repo.Get(key, merchantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if time.Now().After(rec.ExpiresAt) {
		if err := s.repo.Delete(key, merchantID); err != nil {
			log.Error().Err(err).Str("idempotency_key", key).Msg("Failed to evict expired idempotency record")
		}
		return nil, false, nil
	}
	return rec.Response, true, nil
}

// Store caches a response under the key for the configured TTL.
func (s *IdempotencyService) Store(key, merchantID string, response []byte) error {
	return s.repo.Upsert(key, merchantID, response, time.Now().Add(s.ttl))
}
