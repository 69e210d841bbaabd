package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"attendtrack/internal/adapters/persistence/models"
	"attendtrack/internal/adapters/persistence/repositories"
	"attendtrack/internal/config"
	"attendtrack/internal/core/domain"
	"attendtrack/internal/pkg/phone"

	validation "github.com/go-ozzo/ozzo-validation"
)

// User service errors
var (
	ErrCannotDeactivateSelf = errors.New("cannot deactivate your own account")
)

// UserService handles profile and account management
type UserService struct {
	users  repositories.UserRepository
	hasher PasswordHasher
	cfg    *config.Config
}

// NewUserService creates a new user service
func NewUserService(users repositories.UserRepository, hasher PasswordHasher, cfg *config.Config) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		cfg:    cfg,
	}
}

// UpdateProfileInput represents update profile input (for self).
// Nil fields are left unchanged.
type UpdateProfileInput struct {
	Name       *string `json:"name"`
	Department *string `json:"department"`
	Position   *string `json:"position"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
}

// Validate will validate the payload
func (in UpdateProfileInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.NilOrNotEmpty, validation.Length(1, 100)),
		validation.Field(&in.Department, validation.NilOrNotEmpty, validation.Length(1, 100)),
		validation.Field(&in.Position, validation.NilOrNotEmpty, validation.Length(1, 100)),
		validation.Field(&in.Phone, validation.NilOrNotEmpty, validation.Length(1, 20)),
		validation.Field(&in.Address, validation.NilOrNotEmpty, validation.Length(1, 255)),
	)
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// GetProfile gets own profile
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.UserResponse, error) {
	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// UpdateProfile updates own profile
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input *UpdateProfileInput) (*models.UserResponse, error) {
	trim(input.Name, input.Department, input.Position, input.Phone, input.Address)
	if err := input.Validate(); err != nil {
		return nil, domain.Validation(err.Error())
	}

	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Department != nil {
		user.Department = *input.Department
	}
	if input.Position != nil {
		user.Position = *input.Position
	}
	if input.Phone != nil {
		normalized, err := phone.Normalize(*input.Phone, s.cfg.PhoneRegion)
		if err != nil {
			return nil, domain.Validation("phone: must be a valid phone number.")
		}
		user.Phone = normalized
	}
	if input.Address != nil {
		user.Address = *input.Address
	}

	if err := s.users.Update(ctx, user); err != nil {
		if isNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storeError("update user", err)
	}

	return user.ToResponse(), nil
}

// ChangePassword changes user's password
func (s *UserService) ChangePassword(ctx context.Context, userID string, input *ChangePasswordInput) error {
	if input.OldPassword == "" || input.NewPassword == "" {
		return domain.Validation("oldPassword and newPassword are required")
	}
	if err := checkPassword("newPassword", input.NewPassword); err != nil {
		return err
	}

	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	// Verify old password
	if !s.hasher.Verify(input.OldPassword, user.Password) {
		return domain.ErrInvalidCredentials
	}

	hashedPassword, err := hashPassword(s.hasher, "newPassword", input.NewPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		if isNotFound(err) {
			return domain.ErrUserNotFound
		}
		return storeError("update password", err)
	}

	log.Printf("✅ Password changed: %s", user.EmployeeID)
	return nil
}

// Deactivate disables an account. The email stays reserved.
func (s *UserService) Deactivate(ctx context.Context, actor Actor, userID string) error {
	if actor.Role != domain.RoleAdmin {
		return domain.ErrInsufficientRole
	}
	if actor.UserID == userID {
		return fmt.Errorf("%w: %w", domain.ErrValidation, ErrCannotDeactivateSelf)
	}

	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.users.SetActive(ctx, userID, false); err != nil {
		if isNotFound(err) {
			return domain.ErrUserNotFound
		}
		return storeError("deactivate user", err)
	}

	log.Printf("✅ User deactivated: %s by %s", userID, actor.UserID)
	return nil
}

func (s *UserService) load(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storeError("load user", err)
	}
	return user, nil
}

func trim(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}
