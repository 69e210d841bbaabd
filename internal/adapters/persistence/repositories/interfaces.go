package repositories

import (
	"context"
	"errors"
	"time"

	"attendtrack/internal/adapters/persistence/models"
)

// Store-level errors shared by every adapter
var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("duplicate record")
	ErrStaleState = errors.New("record was modified concurrently")
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetActiveByEmail(ctx context.Context, email string) (*models.User, error)
	GetActiveByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id string, tokenHash *string, expiresAt *time.Time) error
	ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
	SetActive(ctx context.Context, id string, active bool) error
	ExistsActiveByRole(ctx context.Context, role string) (bool, error)
}

// RegistrationRepository defines registration request repository interface.
// Requests are never deleted.
type RegistrationRepository interface {
	Create(ctx context.Context, req *models.RegistrationRequest) error
	GetByID(ctx context.Context, id string) (*models.RegistrationRequest, error)
	GetActiveByEmail(ctx context.Context, email string) (*models.RegistrationRequest, error)
	GetLatestByEmail(ctx context.Context, email string) (*models.RegistrationRequest, error)
	List(ctx context.Context, status string, offset, limit int) ([]*models.RegistrationRequest, int64, error)
	Stats(ctx context.Context) (*models.RegistrationStats, error)
	// SaveDecision persists the decision fields only while the stored
	// request is still pending, otherwise it returns ErrStaleState.
	SaveDecision(ctx context.Context, req *models.RegistrationRequest) error
}

// SequenceRepository hands out monotonically increasing values per name
type SequenceRepository interface {
	Next(ctx context.Context, name string) (int64, error)
}

// NotificationRepository defines admin inbox repository interface
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, unreadOnly bool, offset, limit int) ([]*models.Notification, int64, error)
	MarkRead(ctx context.Context, id string) error
}

// Repositories bundles the adapters of one storage backend
type Repositories struct {
	Users         UserRepository
	Registrations RegistrationRepository
	Sequences     SequenceRepository
	Notifications NotificationRepository
}
