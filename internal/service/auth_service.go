package service

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/nimbuspay/gateway/internal/models"
	"github.com/nimbuspay/gateway/internal/repository"
	"github.com/nimbuspay/gateway/internal/utils"
)

// AuthService authenticates API calls (key/secret pairs) and dashboard
// logins (email/password exchanged for a JWT).
type AuthService struct {
	merchants *repository.MerchantRepository
	jwtSecret string
}

// NewAuthService creates a new AuthService.
func NewAuthService(merchants *repository.MerchantRepository, jwtSecret string) *AuthService {
	return &AuthService{merchants: merchants, jwtSecret: jwtSecret}
}

// Authenticate resolves an API key/secret pair to an active merchant.
// Unknown credentials and deactivated merchants are indistinguishable to the
// caller.
func (s *AuthService) Authenticate(apiKey, apiSecret string) (*models.Merchant, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, utils.ErrAuthentication
	}
	m, err := s.merchants.GetByCredentials(apiKey, apiSecret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrAuthentication
	}
	if err != nil {
		return nil, err
	}
	if !m.IsActive {
		return nil, utils.ErrAuthentication
	}
	return m, nil
}

// Login verifies a dashboard password and issues a session JWT.
func (s *AuthService) Login(email, password string) (string, *models.Merchant, error) {
	m, err := s.merchants.GetByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, utils.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !m.IsActive || m.PasswordHash == nil {
		return "", nil, utils.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*m.PasswordHash), []byte(password)); err != nil {
		return "", nil, utils.ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(s.jwtSecret, m.ID, m.Email)
	if err != nil {
		return "", nil, err
	}
	log.Info().Str("merchant_id", m.ID).Msg("Dashboard login")
	return token, m, nil
}

// ValidateToken verifies a dashboard JWT and returns its claims.
func (s *AuthService) ValidateToken(token string) (*utils.DashboardClaims, error) {
	return utils.ValidateJWT(s.jwtSecret, token)
}
