package repositories

import (
	"context"
	"strings"
	"time"

	"attendtrack/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// GetByID gets a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetByEmail gets a user by email regardless of active flag
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetActiveByEmail gets an active user by email
func (r *userRepository) GetActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(email)).
		Where("is_active = ?", true).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetActiveByResetTokenHash gets an active user holding the reset token hash
func (r *userRepository) GetActiveByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("reset_token_hash = ?", tokenHash).
		Where("is_active = ?", true).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Update updates profile fields of a user
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"name":       user.Name,
			"department": user.Department,
			"position":   user.Position,
			"phone":      user.Phone,
			"address":    user.Address,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the password hash of a user
func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password":   passwordHash,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetToken stores or clears (nil values) the reset token of a user
func (r *userRepository) SetResetToken(ctx context.Context, id string, tokenHash *string, expiresAt *time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reset_token_hash":       tokenHash,
			"reset_token_expires_at": expiresAt,
			"updated_at":             time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeResetToken sets a new password only if the token is still stored and unexpired
func (r *userRepository) ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Where("is_active = ?", true).
		Where("reset_token_hash = ?", tokenHash).
		Where("reset_token_expires_at > ?", now).
		Updates(map[string]interface{}{
			"password":               passwordHash,
			"reset_token_hash":       nil,
			"reset_token_expires_at": nil,
			"updated_at":             now,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// ClearExpiredResetTokens removes reset tokens past their expiry (cleanup job)
func (r *userRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("reset_token_expires_at IS NOT NULL").
		Where("reset_token_expires_at <= ?", now).
		Updates(map[string]interface{}{
			"reset_token_hash":       nil,
			"reset_token_expires_at": nil,
		})
	return res.RowsAffected, translate(res.Error)
}

// SetActive activates or deactivates a user
func (r *userRepository) SetActive(ctx context.Context, id string, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsActiveByRole checks if any active user holds role
func (r *userRepository) ExistsActiveByRole(ctx context.Context, role string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ? AND is_active = ?", role, true).Count(&count).Error
	return count > 0, translate(err)
}
