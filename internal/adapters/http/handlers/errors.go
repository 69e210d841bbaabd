package handlers

import (
	"errors"
	"log"
	"strings"

	"attendtrack/internal/adapters/http/middleware"
	"attendtrack/internal/core/domain"
	"attendtrack/internal/core/services"
	"attendtrack/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// writeError maps domain errors to HTTP responses
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return response.BadRequest(c, detail(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrInsufficientRole):
		return response.Forbidden(c, "You don't have permission to perform this action")
	case errors.Is(err, domain.ErrForbidden):
		return response.BadRequest(c, detail(err, domain.ErrForbidden))
	case errors.Is(err, domain.ErrConflict):
		return response.BadRequest(c, detail(err, domain.ErrConflict))
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, detail(err, domain.ErrNotFound))
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrAwaitingApproval),
		errors.Is(err, domain.ErrRegistrationRejected):
		return response.Unauthorized(c, err.Error())
	case errors.Is(err, domain.ErrInvalidToken):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrServiceUnavailable):
		log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
		return response.InternalServerError(c, "Service temporarily unavailable, please try again later")
	default:
		log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
		return response.InternalServerError(c, "Internal server error")
	}
}

// detail strips the error kind prefix from a wrapped domain error
func detail(err, kind error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, kind.Error()+": "); ok {
		return rest
	}
	return msg
}

// currentActor reads the authenticated caller set by AuthMiddleware
func currentActor(c *fiber.Ctx) (services.Actor, bool) {
	userID, ok := c.Locals(middleware.LocalUserID).(string)
	if !ok || userID == "" {
		return services.Actor{}, false
	}
	role, _ := c.Locals(middleware.LocalRole).(string)
	return services.Actor{UserID: userID, Role: domain.Role(role)}, true
}
