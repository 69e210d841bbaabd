package handlers

import (
	"attendtrack/internal/core/services"
	"attendtrack/internal/pkg/pagination"
	"attendtrack/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// NotificationHandler handles the admin inbox
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List handles inbox listing
// @Summary List notifications
// @Description List admin notifications, newest first
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param unread query bool false "Only unread"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(10)
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /notifications [get]
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	result, err := h.notificationService.List(
		c.UserContext(),
		c.QueryBool("unread", false),
		params.Page,
		params.Limit,
	)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "", result)
}

// MarkRead handles marking a notification read
// @Summary Mark notification read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.notificationService.MarkRead(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Notification marked as read", nil)
}
