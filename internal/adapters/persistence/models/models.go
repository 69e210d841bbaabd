package models

import (
	"strings"
	"time"

	"attendtrack/internal/core/domain"
)

// Records are shared by the GORM and MongoDB adapters, hence both tag sets.

// User represents users table / collection
type User struct {
	ID                    string     `gorm:"primaryKey;size:26" bson:"_id" json:"id"`
	EmployeeID            string     `gorm:"uniqueIndex;size:20;not null" bson:"employee_id" json:"employee_id"`
	Name                  string     `gorm:"size:100;not null" bson:"name" json:"name"`
	Email                 string     `gorm:"uniqueIndex;size:100;not null" bson:"email" json:"email"`
	Password              string     `gorm:"size:255;not null" bson:"password" json:"-"`
	Department            string     `gorm:"size:100" bson:"department" json:"department"`
	Position              string     `gorm:"size:100" bson:"position" json:"position"`
	Phone                 string     `gorm:"size:20" bson:"phone" json:"phone"`
	Address               string     `gorm:"size:255" bson:"address" json:"address"`
	Role                  string     `gorm:"size:20;not null" bson:"role" json:"role"`
	IsActive              bool       `gorm:"not null;index" bson:"is_active" json:"is_active"`
	ResetTokenHash        *string    `gorm:"size:64;index" bson:"reset_token_hash,omitempty" json:"-"`
	ResetTokenExpiresAt   *time.Time `bson:"reset_token_expires_at,omitempty" json:"-"`
	RegistrationRequestID string     `gorm:"size:26;index" bson:"registration_request_id,omitempty" json:"registration_request_id,omitempty"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" bson:"updated_at" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	Position   string    `json:"position"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:         u.ID,
		EmployeeID: u.EmployeeID,
		Name:       u.Name,
		Email:      u.Email,
		Department: u.Department,
		Position:   u.Position,
		Phone:      u.Phone,
		Address:    u.Address,
		Role:       u.Role,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
	}
}

// HasValidResetToken reports whether tokenHash matches an unexpired reset token
func (u *User) HasValidResetToken(tokenHash string, now time.Time) bool {
	if u.ResetTokenHash == nil || u.ResetTokenExpiresAt == nil {
		return false
	}
	return *u.ResetTokenHash == tokenHash && now.Before(*u.ResetTokenExpiresAt)
}

// RegistrationRequest represents registration_requests table / collection
type RegistrationRequest struct {
	ID              string     `gorm:"primaryKey;size:26" bson:"_id" json:"id"`
	Name            string     `gorm:"size:100;not null" bson:"name" json:"name"`
	Email           string     `gorm:"size:100;not null;index" bson:"email" json:"email"`
	ActiveEmail     *string    `gorm:"uniqueIndex;size:100" bson:"active_email,omitempty" json:"-"`
	Password        string     `gorm:"size:255;not null" bson:"password" json:"-"`
	Department      string     `gorm:"size:100" bson:"department" json:"department"`
	Position        string     `gorm:"size:100" bson:"position" json:"position"`
	Phone           string     `gorm:"size:20" bson:"phone" json:"phone"`
	Address         string     `gorm:"size:255" bson:"address" json:"address"`
	Role            string     `gorm:"size:20;not null" bson:"role" json:"role"`
	Status          string     `gorm:"size:20;not null;index" bson:"status" json:"status"`
	SubmittedAt     time.Time  `gorm:"not null;index" bson:"submitted_at" json:"submitted_at"`
	ReviewedAt      *time.Time `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	ReviewedBy      *string    `gorm:"size:26" bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	RejectionReason *string    `gorm:"type:text" bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	UserID          *string    `gorm:"size:26" bson:"user_id,omitempty" json:"user_id,omitempty"`
}

func (RegistrationRequest) TableName() string {
	return "registration_requests"
}

// NewRegistrationRequest builds a pending request holding the email reservation
func NewRegistrationRequest(id, email string, now time.Time) *RegistrationRequest {
	email = strings.ToLower(strings.TrimSpace(email))
	active := email
	return &RegistrationRequest{
		ID:          id,
		Email:       email,
		ActiveEmail: &active,
		Status:      string(domain.StatusPending),
		SubmittedAt: now,
	}
}

// IsPending reports whether a decision can still be made
func (r *RegistrationRequest) IsPending() bool {
	return r.Status == string(domain.StatusPending)
}

// Approve moves a pending request to approved. Decisions are final.
func (r *RegistrationRequest) Approve(reviewerID, userID string, now time.Time) error {
	if !r.IsPending() {
		return domain.ErrRequestProcessed
	}
	r.Status = string(domain.StatusApproved)
	r.ReviewedBy = &reviewerID
	r.ReviewedAt = &now
	r.UserID = &userID
	return nil
}

// Reject moves a pending request to rejected and releases the email reservation
func (r *RegistrationRequest) Reject(reviewerID, reason string, now time.Time) error {
	if !r.IsPending() {
		return domain.ErrRequestProcessed
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = domain.DefaultRejectionReason
	}
	r.Status = string(domain.StatusRejected)
	r.ReviewedBy = &reviewerID
	r.ReviewedAt = &now
	r.RejectionReason = &reason
	r.ActiveEmail = nil
	return nil
}

// RegistrationRequestResponse DTO (never carries the password hash)
type RegistrationRequestResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Department      string     `json:"department"`
	Position        string     `json:"position"`
	Phone           string     `json:"phone"`
	Address         string     `json:"address"`
	Role            string     `json:"role"`
	Status          string     `json:"status"`
	SubmittedAt     time.Time  `json:"submittedAt"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	ReviewedBy      *string    `json:"reviewedBy,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
}

func (r *RegistrationRequest) ToResponse() *RegistrationRequestResponse {
	return &RegistrationRequestResponse{
		ID:              r.ID,
		Name:            r.Name,
		Email:           r.Email,
		Department:      r.Department,
		Position:        r.Position,
		Phone:           r.Phone,
		Address:         r.Address,
		Role:            r.Role,
		Status:          r.Status,
		SubmittedAt:     r.SubmittedAt,
		ReviewedAt:      r.ReviewedAt,
		ReviewedBy:      r.ReviewedBy,
		RejectionReason: r.RejectionReason,
	}
}

// RegistrationStats holds request counts per status
type RegistrationStats struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}

// Notification represents notifications table / collection (admin inbox)
type Notification struct {
	ID          string    `gorm:"primaryKey;size:26" bson:"_id" json:"id"`
	Type        string    `gorm:"size:50;not null;index" bson:"type" json:"type"`
	Title       string    `gorm:"size:200;not null" bson:"title" json:"title"`
	Message     string    `gorm:"type:text" bson:"message" json:"message"`
	ReferenceID string    `gorm:"size:26;index" bson:"reference_id" json:"referenceId"`
	IsRead      bool      `gorm:"not null;index" bson:"is_read" json:"isRead"`
	CreatedAt   time.Time `gorm:"autoCreateTime" bson:"created_at" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

// Sequence represents sequences table (named monotonic counters)
type Sequence struct {
	Name  string `gorm:"primaryKey;size:50" bson:"_id" json:"name"`
	Value int64  `gorm:"not null" bson:"value" json:"value"`
}

func (Sequence) TableName() string {
	return "sequences"
}
