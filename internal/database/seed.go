package database

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/nimbuspay/gateway/internal/config"
	"github.com/nimbuspay/gateway/internal/models"
	"github.com/nimbuspay/gateway/internal/repository"
	"github.com/nimbuspay/gateway/internal/utils"
)

// testMerchantID is fixed so local environments and test suites can hardcode
// it.
const testMerchantID = "550e8400-e29b-41d4-a716-446655440000"

// SeedTestMerchant ensures the development merchant exists. Idempotent: an
// existing row is left untouched so rotated credentials survive restarts.
func SeedTestMerchant(merchants *repository.MerchantRepository, cfg *config.SeedConfig) error {
	if _, err := merchants.GetByEmail(cfg.MerchantEmail); err == nil {
		log.Info().Str("email", cfg.MerchantEmail).Msg("Test merchant already seeded")
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	apiKey := cfg.APIKey
	apiSecret := cfg.APISecret
	var err error
	if apiKey == "" {
		if apiKey, err = utils.GenerateAPIKey("key_test"); err != nil {
			return err
		}
	}
	if apiSecret == "" {
		if apiSecret, err = utils.GenerateAPIKey("secret_test"); err != nil {
			return err
		}
	}

	var passwordHash *string
	if cfg.DashboardPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DashboardPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		h := string(hash)
		passwordHash = &h
	}

	webhookSecret := cfg.WebhookSecret
	m := &models.Merchant{
		ID:            testMerchantID,
		Name:          "Test Merchant",
		Email:         cfg.MerchantEmail,
		APIKey:        apiKey,
		APISecret:     apiSecret,
		WebhookSecret: &webhookSecret,
		PasswordHash:  passwordHash,
		IsActive:      true,
	}
	if err := merchants.Create(m); err != nil {
		return err
	}

	log.Info().
		Str("merchant_id", m.ID).
		Str("email", m.Email).
		Str("api_key", apiKey).
		Msg("Test merchant seeded")
	return nil
}
