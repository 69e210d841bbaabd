package handlers

import (
	"attendtrack/internal/core/services"
	"attendtrack/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// resetAckMessage is returned for every accepted forgot-password request
const resetAckMessage = "If the email belongs to an active account, a password reset link has been sent"

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *services.AuthService
	resetService *services.PasswordResetService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, resetService *services.PasswordResetService) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		resetService: resetService,
	}
}

// LoginRequest represents login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest represents forgot password request body
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents reset password request body
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// Login handles user login
// @Summary Login user
// @Description Authenticate an approved employee and return a session token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.authService.Login(c.UserContext(), &services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Login successful", result)
}

// ForgotPassword handles password reset requests
// @Summary Request password reset
// @Description Send a password reset link. The answer is the same whether or not the email is known.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body ForgotPasswordRequest true "Account email"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.resetService.RequestReset(c.UserContext(), req.Email); err != nil {
		return writeError(c, err)
	}

	return response.Success(c, resetAckMessage, nil)
}

// ResetPassword handles password reset confirmation
// @Summary Reset password
// @Description Set a new password using a reset token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /reset-password [post]
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	err := h.resetService.ConfirmReset(c.UserContext(), &services.ResetPasswordInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Password has been reset successfully", nil)
}
