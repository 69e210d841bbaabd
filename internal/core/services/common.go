package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"attendtrack/internal/adapters/persistence/repositories"
	"attendtrack/internal/core/domain"
	"attendtrack/internal/pkg/password"

	"golang.org/x/crypto/bcrypt"
)

var passwordLengthMessage = fmt.Sprintf("the length must be between %d and %d bytes.", password.MinLength, password.MaxLength)

// Actor is the authenticated caller of an operation
type Actor struct {
	UserID string
	Role   domain.Role
}

// withStoreTimeout bounds a unit of store work
func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// storeError converts an unexpected repository error into ServiceUnavailable.
// Callers handle ErrNotFound / ErrDuplicate / ErrStaleState before this.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	return domain.Unavailable(op, err)
}

// passwordLength is an ozzo rule over password.ValidatePassword. Empty
// values are left to validation.Required.
func passwordLength(value interface{}) error {
	p, _ := value.(string)
	if p != "" && !password.ValidatePassword(p) {
		return errors.New(passwordLengthMessage)
	}
	return nil
}

// checkPassword validates a new password supplied in field
func checkPassword(field, p string) error {
	if !password.ValidatePassword(p) {
		return domain.Validation(field + ": " + passwordLengthMessage)
	}
	return nil
}

// hashPassword hashes p, reporting bcrypt's length limit as a validation error
func hashPassword(h PasswordHasher, field, p string) (string, error) {
	hash, err := h.Hash(p)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", domain.Validation(field + ": " + passwordLengthMessage)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// isNotFound reports whether a repository lookup found nothing
func isNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}

// outcome labels an operation result for metrics
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAwaitingApproval):
		return "pending"
	case errors.Is(err, domain.ErrRegistrationRejected):
		return "rejected"
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid_token"
	default:
		return "error"
	}
}
