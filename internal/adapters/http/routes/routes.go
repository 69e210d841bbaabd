package routes

import (
	"attendtrack/internal/adapters/http/handlers"
	"attendtrack/internal/adapters/http/middleware"
	"attendtrack/internal/config"
	"attendtrack/internal/core/services"
	"attendtrack/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
)

// Dependencies are the wired services the routes are served by
type Dependencies struct {
	Config        *config.Config
	Database      handlers.ReadinessChecker
	Metrics       *metrics.Metrics
	Auth          *services.AuthService
	Registrations *services.RegistrationService
	PasswordReset *services.PasswordResetService
	Users         *services.UserService
	Notifications *services.NotificationService
}

// Setup configures all routes for the application
func Setup(app *fiber.App, deps *Dependencies) {
	cfg := deps.Config

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(deps.Database, cfg)
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.PasswordReset)
	registrationHandler := handlers.NewRegistrationHandler(deps.Registrations)
	userHandler := handlers.NewUserHandler(deps.Users)
	notificationHandler := handlers.NewNotificationHandler(deps.Notifications)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/ready", healthHandler.Ready)

	// Prometheus metrics
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	auth := middleware.AuthMiddleware(deps.Auth)

	// Public auth routes (rate limited, never stored by caches)
	authLimiter := middleware.AuthRateLimiter(cfg.AuthRateMax)
	noStore := middleware.NoStore()
	apiV1.Post("/register", authLimiter, noStore, registrationHandler.Register)
	apiV1.Post("/login", authLimiter, noStore, authHandler.Login)
	apiV1.Post("/forgot-password", authLimiter, noStore, authHandler.ForgotPassword)
	apiV1.Post("/reset-password", authLimiter, noStore, authHandler.ResetPassword)

	// Profile routes (any authenticated user)
	apiV1.Get("/profile", auth, noStore, userHandler.GetProfile)
	apiV1.Put("/profile", auth, userHandler.UpdateProfile)
	apiV1.Put("/profile/password", auth, userHandler.ChangePassword)

	// Registration review routes (admin / hr)
	reviewers := []fiber.Handler{auth, middleware.AdminOrHR()}
	apiV1.Get("/registration-requests", append(reviewers, registrationHandler.List)...)
	apiV1.Post("/approve-registration/:id", append(reviewers, registrationHandler.Approve)...)
	apiV1.Post("/reject-registration/:id", append(reviewers, registrationHandler.Reject)...)
	apiV1.Get("/registration-stats", append(reviewers, registrationHandler.Stats)...)

	// Admin inbox (admin / hr)
	apiV1.Get("/notifications", append(reviewers, notificationHandler.List)...)
	apiV1.Put("/notifications/:id/read", append(reviewers, notificationHandler.MarkRead)...)

	// User administration (admin only)
	apiV1.Post("/users/:id/deactivate", auth, middleware.AdminOnly(), userHandler.Deactivate)
}
