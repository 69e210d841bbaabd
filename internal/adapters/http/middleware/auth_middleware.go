package middleware

import (
	"errors"
	"strings"

	"attendtrack/internal/core/domain"
	"attendtrack/internal/pkg/jwt"
	"attendtrack/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthMiddleware
const (
	LocalUserID     = "userID"
	LocalEmployeeID = "employeeID"
	LocalEmail      = "email"
	LocalRole       = "role"
)

// TokenValidator validates session tokens
type TokenValidator interface {
	ValidateAccessToken(token string) (*jwt.Claims, error)
}

// AuthMiddleware creates authentication middleware (Bearer header)
func AuthMiddleware(tokens TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Read Authorization header
		authHeader := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return response.Unauthorized(c, "Access token required")
		}
		accessToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		// 2. Validate token
		claims, err := tokens.ValidateAccessToken(accessToken)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		// 3. Set user info in context
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalEmployeeID, claims.EmployeeID)
		c.Locals(LocalEmail, claims.Email)
		c.Locals(LocalRole, claims.Role)

		return c.Next()
	}
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(LocalRole).(string)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		// Check if user's role is in allowed roles
		for _, allowedRole := range allowedRoles {
			if domain.Role(role) == allowedRole {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// AdminOnly middleware allows only the admin role
func AdminOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleAdmin)
}

// AdminOrHR middleware allows roles that review registrations
func AdminOrHR() fiber.Handler {
	return RoleMiddleware(domain.RoleAdmin, domain.RoleHR)
}
