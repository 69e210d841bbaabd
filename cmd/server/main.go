package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attendtrack/internal/adapters/http/middleware"
	"attendtrack/internal/adapters/http/routes"
	"attendtrack/internal/adapters/mail"
	"attendtrack/internal/adapters/messaging/kafka"
	"attendtrack/internal/config"
	"attendtrack/internal/core/services"
	"attendtrack/internal/pkg/jwt"
	"attendtrack/internal/pkg/metrics"
	"attendtrack/internal/pkg/password"

	"github.com/gofiber/fiber/v2"

	_ "attendtrack/docs" // Swagger docs
)

// @title Attendance Tracker API
// @version 1.0
// @description Employee registration approval, authentication and password reset API

// @contact.name API Support

// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// Connect to database
	db, err := config.ConnectDatabase(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			log.Printf("❌ Error closing database: %v", err)
		}
	}()

	// Auto migrate (tables for SQL, indexes for MongoDB)
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("❌ Failed to migrate database: %v", err)
	}
	log.Println("✅ Database migration completed")

	repos := db.Repositories()
	hasher := password.NewHasher(cfg.BcryptCost)

	// Seed bootstrap admin
	if err := config.NewSeeder(repos.Users, hasher, cfg.Seed).Run(ctx); err != nil {
		log.Printf("⚠️ Warning: Failed to seed database: %v", err)
	}

	m := metrics.New()
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Notification sink (admin inbox + optional Kafka)
	var publisher services.EventPublisher
	if cfg.Kafka.Enabled() {
		publisher = kafka.NewProducer(cfg.Kafka.Broker, cfg.Kafka.Topic)
		log.Printf("✅ Publishing registration events to %s/%s", cfg.Kafka.Broker, cfg.Kafka.Topic)
	}
	notificationService := services.NewNotificationService(repos.Notifications, publisher, cfg)
	defer notificationService.Close()

	// Reset link delivery
	var mailer services.Mailer = mail.DisabledMailer{}
	if cfg.SMTP.Enabled() {
		smtpMailer, err := mail.NewSMTPMailer(cfg.SMTP)
		if err != nil {
			log.Fatalf("❌ Failed to configure SMTP: %v", err)
		}
		mailer = smtpMailer
	} else {
		log.Println("⚠️ SMTP not configured, password reset requests will fail")
	}

	resetService := services.NewPasswordResetService(repos.Users, hasher, mailer, m, cfg)

	// Start Cron Service for reset token cleanup
	cronService := services.NewCronService(resetService)
	if err := cronService.Start(); err != nil {
		log.Fatalf("❌ Failed to start cron: %v", err)
	}
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Attendance Tracker API v1.0",
		ErrorHandler: middleware.ErrorHandler(cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	// Setup middlewares
	middleware.Setup(app, cfg, m)

	// Setup routes
	routes.Setup(app, &routes.Dependencies{
		Config:        cfg,
		Database:      db,
		Metrics:       m,
		Auth:          services.NewAuthService(repos, hasher, tokens, m, cfg),
		Registrations: services.NewRegistrationService(repos, hasher, notificationService, m, cfg),
		PasswordReset: resetService,
		Users:         services.NewUserService(repos.Users, hasher, cfg),
		Notifications: notificationService,
	})

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
