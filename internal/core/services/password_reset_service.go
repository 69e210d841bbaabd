package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"attendtrack/internal/adapters/persistence/repositories"
	"attendtrack/internal/config"
	"attendtrack/internal/core/domain"
	"attendtrack/internal/pkg/metrics"
	"attendtrack/internal/pkg/password"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// resetTokenBytes is the entropy of a reset token before hex encoding
const resetTokenBytes = 32

// ErrResetDeliveryDisabled is returned when no mailer is configured
var ErrResetDeliveryDisabled = fmt.Errorf("%w: password reset delivery is not configured", domain.ErrServiceUnavailable)

// PasswordResetService issues and redeems single-use reset tokens
type PasswordResetService struct {
	users   repositories.UserRepository
	hasher  PasswordHasher
	mailer  Mailer
	metrics *metrics.Metrics
	cfg     *config.Config
	now     func() time.Time
}

// NewPasswordResetService creates a new password reset service
func NewPasswordResetService(
	users repositories.UserRepository,
	hasher PasswordHasher,
	mailer Mailer,
	m *metrics.Metrics,
	cfg *config.Config,
) *PasswordResetService {
	return &PasswordResetService{
		users:   users,
		hasher:  hasher,
		mailer:  mailer,
		metrics: m,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ResetPasswordInput represents reset confirmation input
type ResetPasswordInput struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// RequestReset sends a reset link to an active account. Unknown emails get
// the same outcome as known ones.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (err error) {
	defer func() { s.metrics.ObserveReset("request", outcome(err)) }()

	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return domain.Validation("email: " + err.Error() + ".")
	}

	if !s.mailer.Enabled() {
		return ErrResetDeliveryDisabled
	}

	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	// 1. Find active user
	user, err := s.users.GetActiveByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			log.Printf("⚠️ Password reset requested for unknown email")
			return nil
		}
		return storeError("lookup user", err)
	}

	// 2. Generate token, only its hash is stored
	token, err := password.GenerateToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	tokenHash := password.HashToken(token)
	expiresAt := s.now().Add(config.ResetTokenTTL)

	if err := s.users.SetResetToken(ctx, user.ID, &tokenHash, &expiresAt); err != nil {
		return storeError("store reset token", err)
	}

	// 3. Deliver, rolling back the token when delivery fails
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, token); err != nil {
		s.clearToken(ctx, user.ID)
		return domain.Unavailable("password reset delivery", err)
	}

	log.Printf("✅ Password reset link sent: %s", user.EmployeeID)
	return nil
}

// clearToken removes an undelivered token. It runs detached from the
// request deadline so a timed-out delivery still gets rolled back.
func (s *PasswordResetService) clearToken(ctx context.Context, userID string) {
	ctx, cancel := withStoreTimeout(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
	defer cancel()

	if err := s.users.SetResetToken(ctx, userID, nil, nil); err != nil {
		log.Printf("❌ Failed to clear undelivered reset token for %s: %v", userID, err)
	}
}

// ConfirmReset sets a new password using a reset token. Tokens are single use.
func (s *PasswordResetService) ConfirmReset(ctx context.Context, input *ResetPasswordInput) (err error) {
	defer func() { s.metrics.ObserveReset("confirm", outcome(err)) }()

	token := strings.TrimSpace(input.Token)
	if token == "" || input.NewPassword == "" {
		return domain.Validation("token and newPassword are required")
	}
	if err := checkPassword("newPassword", input.NewPassword); err != nil {
		return err
	}

	tokenHash := password.HashToken(token)
	now := s.now()

	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	// 1. Find the account holding this token
	user, err := s.users.GetActiveByResetTokenHash(ctx, tokenHash)
	if err != nil {
		if isNotFound(err) {
			return domain.ErrInvalidToken
		}
		return storeError("lookup reset token", err)
	}
	if !user.HasValidResetToken(tokenHash, now) {
		return domain.ErrInvalidToken
	}

	hashedPassword, err := hashPassword(s.hasher, "newPassword", input.NewPassword)
	if err != nil {
		return err
	}

	// 2. Swap password and clear token only if the token is still current
	if err := s.users.ConsumeResetToken(ctx, user.ID, tokenHash, hashedPassword, now); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return domain.ErrInvalidToken
		}
		return storeError("consume reset token", err)
	}

	log.Printf("✅ Password reset completed: %s", user.EmployeeID)
	return nil
}

// PurgeExpired clears reset tokens past their expiry
func (s *PasswordResetService) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	n, err := s.users.ClearExpiredResetTokens(ctx, s.now())
	if err != nil {
		return 0, storeError("purge reset tokens", err)
	}
	return n, nil
}
