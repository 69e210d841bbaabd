package handlers

import (
	"attendtrack/internal/core/services"
	"attendtrack/internal/pkg/pagination"
	"attendtrack/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RegistrationHandler handles registration workflow endpoints
type RegistrationHandler struct {
	registrationService *services.RegistrationService
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(registrationService *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

// RegisterRequest represents registration request body
type RegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Department string `json:"department"`
	Position   string `json:"position"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Role       string `json:"role"`
	AdminCode  string `json:"adminCode"`
}

// RejectRequest represents reject request body
type RejectRequest struct {
	Reason string `json:"reason"`
}

// Register handles registration submission
// @Summary Submit registration request
// @Description Submit a registration request that an administrator must approve
// @Tags Registration
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Registration data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /register [post]
func (h *RegistrationHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.registrationService.Submit(c.UserContext(), &services.SubmitRegistrationInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Department: req.Department,
		Position:   req.Position,
		Phone:      req.Phone,
		Address:    req.Address,
		Role:       req.Role,
		AdminCode:  req.AdminCode,
	})
	if err != nil {
		return writeError(c, err)
	}

	return response.Created(c, "Registration submitted, awaiting administrator approval", result)
}

// List handles registration request listing
// @Summary List registration requests
// @Description List registration requests, newest first
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(10)
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /registration-requests [get]
func (h *RegistrationHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	result, err := h.registrationService.List(
		c.UserContext(),
		c.Query("status"),
		params.Page,
		params.Limit,
	)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "", result)
}

// Approve handles registration approval
// @Summary Approve registration request
// @Description Create the employee account of a pending request
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /approve-registration/{id} [post]
func (h *RegistrationHandler) Approve(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	user, err := h.registrationService.Approve(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Registration approved", fiber.Map{
		"user": user.ToResponse(),
	})
}

// Reject handles registration rejection
// @Summary Reject registration request
// @Description Reject a pending request with an optional reason
// @Tags Registration
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param body body RejectRequest false "Rejection reason"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /reject-registration/{id} [post]
func (h *RegistrationHandler) Reject(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req RejectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	result, err := h.registrationService.Reject(c.UserContext(), actor, c.Params("id"), req.Reason)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Registration rejected", fiber.Map{
		"reason": result.RejectionReason,
	})
}

// Stats handles registration statistics
// @Summary Registration statistics
// @Description Count registration requests per status
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /registration-stats [get]
func (h *RegistrationHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.registrationService.Stats(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "", stats)
}
