package repositories

import (
	"context"
	"strings"

	"attendtrack/internal/adapters/persistence/models"
	"attendtrack/internal/core/domain"

	"gorm.io/gorm"
)

// registrationRepository implements RegistrationRepository interface
type registrationRepository struct {
	db *gorm.DB
}

// NewRegistrationRepository creates a new registration request repository
func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

// Create creates a new registration request.
// The unique active_email index rejects a second pending/approved request.
func (r *registrationRepository) Create(ctx context.Context, req *models.RegistrationRequest) error {
	return translate(r.db.WithContext(ctx).Create(req).Error)
}

// GetByID gets a registration request by ID
func (r *registrationRepository) GetByID(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	var req models.RegistrationRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

// GetActiveByEmail gets the pending or approved request for an email
func (r *registrationRepository) GetActiveByEmail(ctx context.Context, email string) (*models.RegistrationRequest, error) {
	var req models.RegistrationRequest
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(email)).
		Where("status IN ?", []string{string(domain.StatusPending), string(domain.StatusApproved)}).
		First(&req).Error
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

// GetLatestByEmail gets the most recently submitted request for an email
func (r *registrationRepository) GetLatestByEmail(ctx context.Context, email string) (*models.RegistrationRequest, error) {
	var req models.RegistrationRequest
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(email)).
		Order("submitted_at DESC").
		First(&req).Error
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

// List lists registration requests with optional status filter, newest first
func (r *registrationRepository) List(ctx context.Context, status string, offset, limit int) ([]*models.RegistrationRequest, int64, error) {
	var reqs []*models.RegistrationRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&models.RegistrationRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	// Count total
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	if err := query.Order("submitted_at DESC").Offset(offset).Limit(limit).Find(&reqs).Error; err != nil {
		return nil, 0, translate(err)
	}

	return reqs, total, nil
}

// Stats counts requests per status
func (r *registrationRepository) Stats(ctx context.Context) (*models.RegistrationStats, error) {
	var rows []struct {
		Status string
		Count  int64
	}

	err := r.db.WithContext(ctx).
		Model(&models.RegistrationRequest{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	stats := &models.RegistrationStats{}
	for _, row := range rows {
		switch domain.RequestStatus(row.Status) {
		case domain.StatusPending:
			stats.Pending = row.Count
		case domain.StatusApproved:
			stats.Approved = row.Count
		case domain.StatusRejected:
			stats.Rejected = row.Count
		}
		stats.Total += row.Count
	}
	return stats, nil
}

// SaveDecision writes the decision fields if the request is still pending
func (r *registrationRepository) SaveDecision(ctx context.Context, req *models.RegistrationRequest) error {
	res := r.db.WithContext(ctx).
		Model(&models.RegistrationRequest{}).
		Where("id = ?", req.ID).
		Where("status = ?", string(domain.StatusPending)).
		Updates(map[string]interface{}{
			"status":           req.Status,
			"active_email":     req.ActiveEmail,
			"reviewed_at":      req.ReviewedAt,
			"reviewed_by":      req.ReviewedBy,
			"rejection_reason": req.RejectionReason,
			"user_id":          req.UserID,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}
