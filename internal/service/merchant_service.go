package service

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/nimbuspay/gateway/internal/models"
	"github.com/nimbuspay/gateway/internal/repository"
	"github.com/nimbuspay/gateway/internal/utils"
)

// MerchantService handles merchant profile and webhook configuration.
type MerchantService struct {
	merchants *repository.MerchantRepository
}

// NewMerchantService creates a new MerchantService.
func NewMerchantService(merchants *repository.MerchantRepository) *MerchantService {
	return &MerchantService{merchants: merchants}
}

// GetMerchant returns a merchant by id.
func (s *MerchantService) GetMerchant(id string) (*models.Merchant, error) {
	m, err := s.merchants.GetByID(id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrMerchantNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateWebhookConfig sets the merchant's webhook URL. A signing secret is
// generated unless the caller supplies one; the secret is returned exactly
// once so the merchant can store it.
func (s *MerchantService) UpdateWebhookConfig(merchantID, url string, secret *string) (string, string, error) {
	if secret == nil || *secret == "" {
		generated, err := utils.GenerateWebhookSecret()
		if err != nil {
			return "", "", err
		}
		secret = &generated
	}

	err := s.merchants.UpdateWebhook(merchantID, &url, secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", utils.ErrMerchantNotFound
	}
	if err != nil {
		return "", "", err
	}
	log.Info().Str("merchant_id", merchantID).Str("webhook_url", url).Msg("Webhook config updated")
	return url, *secret, nil
}
