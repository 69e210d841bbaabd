package handlers

import (
	"context"
	"time"

	"attendtrack/internal/config"
	"attendtrack/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// readinessTimeout bounds the store ping of /ready and /health
const readinessTimeout = 2 * time.Second

// ReadinessChecker reports whether the store answers within timeout
type ReadinessChecker interface {
	Ready(ctx context.Context, timeout time.Duration) bool
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db  ReadinessChecker
	cfg *config.Config
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db ReadinessChecker, cfg *config.Config) *HealthHandler {
	return &HealthHandler{db: db, cfg: cfg}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Description Returns API status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "🚀 Attendance Tracker API v1.0 is running",
		"mode":    h.cfg.AppMode,
		"docs":    "/swagger/index.html",
	})
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check API and database health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	dbStatus := "healthy"
	if !h.db.Ready(c.UserContext(), readinessTimeout) {
		dbStatus = "unhealthy"
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"checks": fiber.Map{
			"api":      "healthy",
			"database": dbStatus,
		},
	})
}

// Ready handles readiness probe
// @Summary Readiness probe
// @Description Returns 200 only when the store answers
// @Tags Health
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /ready [get]
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if !h.db.Ready(c.UserContext(), readinessTimeout) {
		return response.ServiceUnavailable(c, "database not ready")
	}
	return response.Success(c, "ready", nil)
}

// APIInfo handles API v1 info
// @Summary API v1 Info
// @Description Returns API v1 information
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1 [get]
func (h *HealthHandler) APIInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Attendance Tracker API v1.0",
		"version": "1.0.0",
	})
}
