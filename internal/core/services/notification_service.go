package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"attendtrack/internal/adapters/persistence/models"
	"attendtrack/internal/adapters/persistence/repositories"
	"attendtrack/internal/config"
	"attendtrack/internal/core/domain"
	"attendtrack/internal/pkg/ids"
	"attendtrack/internal/pkg/pagination"
)

// RegistrationEvent is published for every registration state change
type RegistrationEvent struct {
	Type       string    `json:"type"`
	RequestID  string    `json:"requestId"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	Status     string    `json:"status"`
	ReviewedBy *string   `json:"reviewedBy,omitempty"`
	UserID     *string   `json:"userId,omitempty"`
	Reason     *string   `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

const (
	EventRegistrationSubmitted = "registration.submitted"
	EventRegistrationApproved  = "registration.approved"
	EventRegistrationRejected  = "registration.rejected"
)

// NotificationService writes the admin inbox and publishes registration events
type NotificationService struct {
	notifications repositories.NotificationRepository
	publisher     EventPublisher
	cfg           *config.Config
}

// NewNotificationService creates a new notification service.
// publisher may be nil when no broker is configured.
func NewNotificationService(
	notifications repositories.NotificationRepository,
	publisher EventPublisher,
	cfg *config.Config,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		publisher:     publisher,
		cfg:           cfg,
	}
}

// IsPublishing checks if events are forwarded to a broker
func (s *NotificationService) IsPublishing() bool {
	return s.publisher != nil
}

// ListNotificationsResult is one page of the admin inbox
type ListNotificationsResult struct {
	Notifications []*models.Notification `json:"notifications"`
	Total         int64                  `json:"total"`
	TotalPages    int                    `json:"totalPages"`
	CurrentPage   int                    `json:"currentPage"`
}

// RegistrationSubmitted records an inbox entry and publishes the event
func (s *NotificationService) RegistrationSubmitted(ctx context.Context, req *models.RegistrationRequest) error {
	n := &models.Notification{
		ID:          ids.New(),
		Type:        string(domain.NotificationRegistrationRequest),
		Title:       "New registration request",
		Message:     fmt.Sprintf("%s (%s) requested a %s account in %s", req.Name, req.Email, req.Role, req.Department),
		ReferenceID: req.ID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	return s.publish(ctx, EventRegistrationSubmitted, req)
}

// RegistrationDecided publishes the approval or rejection
func (s *NotificationService) RegistrationDecided(ctx context.Context, req *models.RegistrationRequest) error {
	eventType := EventRegistrationApproved
	if req.Status == string(domain.StatusRejected) {
		eventType = EventRegistrationRejected
	}
	return s.publish(ctx, eventType, req)
}

func (s *NotificationService) publish(ctx context.Context, eventType string, req *models.RegistrationRequest) error {
	if s.publisher == nil {
		return nil
	}

	event := RegistrationEvent{
		Type:       eventType,
		RequestID:  req.ID,
		Email:      req.Email,
		Name:       req.Name,
		Role:       req.Role,
		Status:     req.Status,
		ReviewedBy: req.ReviewedBy,
		UserID:     req.UserID,
		Reason:     req.RejectionReason,
		OccurredAt: time.Now().UTC(),
	}

	if err := s.publisher.Publish(ctx, req.ID, event); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// List returns inbox entries, newest first
func (s *NotificationService) List(ctx context.Context, unreadOnly bool, page, limit int) (*ListNotificationsResult, error) {
	params := pagination.New(page, limit)

	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	items, total, err := s.notifications.List(ctx, unreadOnly, params.Offset, params.Limit)
	if err != nil {
		return nil, storeError("list notifications", err)
	}

	return &ListNotificationsResult{
		Notifications: items,
		Total:         total,
		TotalPages:    params.TotalPages(total),
		CurrentPage:   params.Page,
	}, nil
}

// MarkRead marks an inbox entry as read
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.notifications.MarkRead(ctx, id); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: notification not found", domain.ErrNotFound)
		}
		return storeError("mark notification read", err)
	}
	return nil
}

// Close releases the event publisher
func (s *NotificationService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		log.Printf("⚠️ Failed to close event publisher: %v", err)
		return err
	}
	return nil
}
