package services

import (
	"context"
	"time"

	"attendtrack/internal/adapters/persistence/models"
	"attendtrack/internal/pkg/jwt"
)

// PasswordHasher hashes and verifies secrets
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer signs and verifies session tokens
type TokenIssuer interface {
	Generate(userID, employeeID, email, role string) (string, time.Time, error)
	Validate(token string) (*jwt.Claims, error)
}

// Notifier receives registration workflow events
type Notifier interface {
	RegistrationSubmitted(ctx context.Context, req *models.RegistrationRequest) error
	RegistrationDecided(ctx context.Context, req *models.RegistrationRequest) error
}

// Mailer delivers password reset links
type Mailer interface {
	Enabled() bool
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

// EventPublisher publishes domain events to a message broker
type EventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}
