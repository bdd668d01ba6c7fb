package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ktanui/circulate/internal/models"
	"github.com/ktanui/circulate/internal/services"
)

// AuthHandler handles login, logout, token refresh and the password
// reset / email verification flows.
type AuthHandler struct {
	auth  *services.AuthService
	users *services.UserService
}

func NewAuthHandler(auth *services.AuthService, users *services.UserService) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

// StudentLogin handles POST /auth/student/login
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	h.login(c, models.RoleStudent)
}

// AdminLogin handles POST /auth/admin/login
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, models.RoleAdmin)
}

func (h *AuthHandler) login(c *gin.Context, portal models.UserRole) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, portal)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, resp, "Login successful")
}

// Register handles POST /auth/register. Self-registration always creates
// a student account; admin accounts are provisioned separately.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), &req, models.RoleStudent)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, user.ToResponse(), "Account created. Verify your email to log in.")
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	access, refresh, err := h.auth.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "Bearer",
	}, "")
}

// Logout handles POST /auth/logout. The presented tokens are blacklisted
// until their natural expiry.
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 {
		if err := h.auth.BlacklistToken(parts[1]); err != nil {
			respondServiceError(c, err)
			return
		}
	}

	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		if err := h.auth.BlacklistRefreshToken(req.RefreshToken); err != nil {
			respondServiceError(c, err)
			return
		}
	}

	respondSuccess(c, http.StatusOK, nil, "Logged out")
}

// ForgotPassword handles POST /auth/forgot-password. The response does
// not reveal whether the email exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if _, err := h.auth.GeneratePasswordResetToken(req.Email); err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, nil, "If the address is registered, a reset link has been sent")
}

// ResetPassword handles POST /auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, nil, "Password updated")
}

// VerifyEmail handles POST /auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req models.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.auth.VerifyEmailToken(c.Request.Context(), req.Token); err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, nil, "Email verified")
}
