package repositories

import (
	"context"

	"attendtrack/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// notificationRepository implements NotificationRepository interface
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create creates a new notification
func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return translate(r.db.WithContext(ctx).Create(n).Error)
}

// List lists notifications, newest first
func (r *notificationRepository) List(ctx context.Context, unreadOnly bool, offset, limit int) ([]*models.Notification, int64, error) {
	var items []*models.Notification
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Notification{})
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, translate(err)
	}

	return items, total, nil
}

// MarkRead marks a notification as read
func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		// MySQL reports 0 for rows already read; tell them apart
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return translate(err)
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}
