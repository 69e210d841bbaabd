package handlers

import (
	"attendtrack/internal/core/services"
	"attendtrack/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles profile and user management endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UpdateProfileRequest represents update profile request body
type UpdateProfileRequest struct {
	Name       *string `json:"name"`
	Department *string `json:"department"`
	Position   *string `json:"position"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
}

// ChangePasswordRequest represents change password request body
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// GetProfile handles get own profile
// @Summary Get profile
// @Description Get the authenticated user's profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /profile [get]
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	user, err := h.userService.GetProfile(c.UserContext(), actor.UserID)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "", user)
}

// UpdateProfile handles update own profile
// @Summary Update profile
// @Description Update the authenticated user's profile fields
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /profile [put]
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.UpdateProfile(c.UserContext(), actor.UserID, &services.UpdateProfileInput{
		Name:       req.Name,
		Department: req.Department,
		Position:   req.Position,
		Phone:      req.Phone,
		Address:    req.Address,
	})
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Profile updated successfully", user)
}

// ChangePassword handles password change
// @Summary Change password
// @Description Change the authenticated user's password
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ChangePasswordRequest true "Old and new password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /profile/password [put]
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	err := h.userService.ChangePassword(c.UserContext(), actor.UserID, &services.ChangePasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Password changed successfully", nil)
}

// Deactivate handles account deactivation
// @Summary Deactivate user
// @Description Disable a user account (admin only)
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.userService.Deactivate(c.UserContext(), actor, c.Params("id")); err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "User deactivated successfully", nil)
}
