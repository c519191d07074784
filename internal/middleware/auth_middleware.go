package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/nimbuspay/gateway/internal/models"
	"github.com/nimbuspay/gateway/internal/service"
	"github.com/nimbuspay/gateway/internal/utils"
)

// AuthMiddleware handles API key/secret authentication for merchant routes.
type AuthMiddleware struct {
	authService *service.AuthService
	rateLimiter *InvalidAuthRateLimiter
}

// NewAuthMiddleware constructs a new AuthMiddleware.
func NewAuthMiddleware(authService *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		rateLimiter: NewInvalidAuthRateLimiter(),
	}
}

// Handle returns a Gin middleware function that enforces authentication.
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-Api-Key")
		apiSecret := c.GetHeader("X-Api-Secret")

		merchant, err := m.authService.Authenticate(apiKey, apiSecret)
		if err != nil {
			m.handleAuthError(c)
			return
		}

		c.Set("merchant", merchant)
		c.Set("merchant_id", merchant.ID)
		c.Next()
	}
}

// Merchant returns the authenticated merchant stored by Handle.
func Merchant(c *gin.Context) *models.Merchant {
	m, _ := c.MustGet("merchant").(*models.Merchant)
	return m
}

func (m *AuthMiddleware) handleAuthError(c *gin.Context) {
	// Apply rate limit for invalid auth attempts
	ip := c.ClientIP()
	if !m.rateLimiter.Allow(ip) {
		utils.Error(c, 429, "TOO_MANY_REQUESTS", "Too many invalid authentication attempts")
		c.Abort()
		return
	}
	utils.Error(c, 401, utils.ErrAuthentication.Error(), "Invalid API credentials")
	c.Abort()
}
