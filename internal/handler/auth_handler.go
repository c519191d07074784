package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/nimbuspay/gateway/internal/service"
	"github.com/nimbuspay/gateway/internal/utils"
)

// AuthHandler handles dashboard authentication.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /v1/dashboard/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		utils.Error(c, 400, "BAD_REQUEST", "email and password are required")
		return
	}

	token, merchant, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		if err == utils.ErrInvalidCredentials {
			utils.Error(c, 401, utils.ErrInvalidCredentials.Error(), "Invalid email or password")
			return
		}
		utils.HandleError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"token": token,
		"merchant": gin.H{
			"id":    merchant.ID,
			"name":  merchant.Name,
			"email": merchant.Email,
		},
	})
}
