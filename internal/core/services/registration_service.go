package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"attendtrack/internal/adapters/persistence/models"
	"attendtrack/internal/adapters/persistence/repositories"
	"attendtrack/internal/config"
	"attendtrack/internal/core/domain"
	"attendtrack/internal/pkg/ids"
	"attendtrack/internal/pkg/metrics"
	"attendtrack/internal/pkg/pagination"
	"attendtrack/internal/pkg/phone"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// RegistrationService handles the registration approval workflow
type RegistrationService struct {
	users     repositories.UserRepository
	requests  repositories.RegistrationRepository
	sequences repositories.SequenceRepository
	hasher    PasswordHasher
	notifier  Notifier
	metrics   *metrics.Metrics
	cfg       *config.Config
	now       func() time.Time
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(
	repos *repositories.Repositories,
	hasher PasswordHasher,
	notifier Notifier,
	m *metrics.Metrics,
	cfg *config.Config,
) *RegistrationService {
	return &RegistrationService{
		users:     repos.Users,
		requests:  repos.Registrations,
		sequences: repos.Sequences,
		hasher:    hasher,
		notifier:  notifier,
		metrics:   m,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SubmitRegistrationInput represents registration input
type SubmitRegistrationInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Department string `json:"department"`
	Position   string `json:"position"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Role       string `json:"role"`
	AdminCode  string `json:"adminCode"`
}

func (in *SubmitRegistrationInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Department = strings.TrimSpace(in.Department)
	in.Position = strings.TrimSpace(in.Position)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
}

// Validate will validate the payload
func (in SubmitRegistrationInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Email, validation.Required, validation.Length(3, 100), is.Email),
		validation.Field(&in.Password, validation.Required, validation.By(passwordLength)),
		validation.Field(&in.Department, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Position, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Phone, validation.Required, validation.Length(1, 20)),
		validation.Field(&in.Address, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Role, validation.In(
			string(domain.RoleEmployee),
			string(domain.RoleHR),
			string(domain.RoleAdmin),
		)),
		validation.Field(&in.AdminCode, validation.Required),
	)
}

// SubmitResult acknowledges a stored registration request
type SubmitResult struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

// ListRegistrationsResult is one page of registration requests
type ListRegistrationsResult struct {
	Requests    []*models.RegistrationRequestResponse `json:"requests"`
	Total       int64                                 `json:"total"`
	TotalPages  int                                   `json:"totalPages"`
	CurrentPage int                                   `json:"currentPage"`
}

// Submit stores a new pending registration request
func (s *RegistrationService) Submit(ctx context.Context, input *SubmitRegistrationInput) (result *SubmitResult, err error) {
	defer func() { s.metrics.ObserveRegistration(outcome(err)) }()

	// 1. Validate input
	input.normalize()
	if err := input.Validate(); err != nil {
		return nil, domain.Validation(err.Error())
	}

	normalizedPhone, err := phone.Normalize(input.Phone, s.cfg.PhoneRegion)
	if err != nil {
		return nil, domain.Validation("phone: must be a valid phone number.")
	}

	role := domain.RoleEmployee
	if input.Role != "" {
		role = domain.Role(input.Role)
	}

	// 2. Check admin verification code
	if subtle.ConstantTimeCompare([]byte(input.AdminCode), []byte(s.cfg.AdminCode)) != 1 {
		return nil, domain.ErrInvalidAdminCode
	}

	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	// 3. Check if email already belongs to a user
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, domain.ErrEmailRegistered
	} else if !isNotFound(err) {
		return nil, storeError("lookup user", err)
	}

	// 4. Check if a request is already pending or approved
	if _, err := s.requests.GetActiveByEmail(ctx, input.Email); err == nil {
		return nil, domain.ErrRequestInProgress
	} else if !isNotFound(err) {
		return nil, storeError("lookup registration", err)
	}

	// 5. Hash password
	hashedPassword, err := hashPassword(s.hasher, "password", input.Password)
	if err != nil {
		return nil, err
	}

	// 6. Create request (unique active_email guards concurrent submissions)
	req := models.NewRegistrationRequest(ids.New(), input.Email, s.now())
	req.Name = input.Name
	req.Password = hashedPassword
	req.Department = input.Department
	req.Position = input.Position
	req.Phone = normalizedPhone
	req.Address = input.Address
	req.Role = string(role)

	if err := s.requests.Create(ctx, req); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, domain.ErrRequestInProgress
		}
		return nil, storeError("create registration", err)
	}

	// 7. Notify administrators
	if err := s.notifier.RegistrationSubmitted(ctx, req); err != nil {
		log.Printf("⚠️ Registration notification failed for %s: %v", req.ID, err)
	}

	log.Printf("✅ Registration submitted: %s (%s)", req.Email, req.ID)

	return &SubmitResult{RequestID: req.ID, Status: req.Status}, nil
}

// List returns registration requests, newest first
func (s *RegistrationService) List(ctx context.Context, status string, page, limit int) (*ListRegistrationsResult, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && !domain.RequestStatus(status).Valid() {
		return nil, domain.Validation("status: must be one of pending, approved, rejected.")
	}

	params := pagination.New(page, limit)

	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	requests, total, err := s.requests.List(ctx, status, params.Offset, params.Limit)
	if err != nil {
		return nil, storeError("list registrations", err)
	}

	items := make([]*models.RegistrationRequestResponse, len(requests))
	for i, req := range requests {
		items[i] = req.ToResponse()
	}

	return &ListRegistrationsResult{
		Requests:    items,
		Total:       total,
		TotalPages:  params.TotalPages(total),
		CurrentPage: params.Page,
	}, nil
}

// Stats returns request counts per status
func (s *RegistrationService) Stats(ctx context.Context) (*models.RegistrationStats, error) {
	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	stats, err := s.requests.Stats(ctx)
	if err != nil {
		return nil, storeError("registration stats", err)
	}
	return stats, nil
}

// Approve turns a pending request into an active user account
func (s *RegistrationService) Approve(ctx context.Context, actor Actor, requestID string) (user *models.User, err error) {
	defer func() { s.metrics.ObserveDecision("approve", outcome(err)) }()

	if !actor.Role.CanReviewRegistrations() {
		return nil, domain.ErrInsufficientRole
	}

	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	// 1. Load request
	req, err := s.loadPending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	// 2. Re-check email; a user created from this very request means a
	// previous attempt stopped before recording the decision
	existing, err := s.users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil && existing.RegistrationRequestID == req.ID:
		user = existing
		log.Printf("⚠️ Resuming approval of %s for existing user %s", req.ID, existing.EmployeeID)
	case err == nil:
		return nil, domain.ErrEmailRegistered
	case isNotFound(err):
		user, err = s.createUser(ctx, req)
		if err != nil {
			return nil, err
		}
	default:
		return nil, storeError("lookup user", err)
	}

	// 3. Record the decision only if nobody decided in the meantime
	if err := req.Approve(actor.UserID, user.ID, s.now()); err != nil {
		return nil, err
	}
	if err := s.requests.SaveDecision(ctx, req); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			s.revokeOrphan(ctx, req.ID, user)
			return nil, domain.ErrRequestProcessed
		}
		return nil, storeError("save decision", err)
	}

	if err := s.notifier.RegistrationDecided(ctx, req); err != nil {
		log.Printf("⚠️ Decision notification failed for %s: %v", req.ID, err)
	}

	log.Printf("✅ Registration approved: %s -> %s by %s", req.Email, user.EmployeeID, actor.UserID)
	return user, nil
}

// Reject closes a pending request without creating a user
func (s *RegistrationService) Reject(ctx context.Context, actor Actor, requestID, reason string) (req *models.RegistrationRequest, err error) {
	defer func() { s.metrics.ObserveDecision("reject", outcome(err)) }()

	if !actor.Role.CanReviewRegistrations() {
		return nil, domain.ErrInsufficientRole
	}

	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	// 1. Load request
	req, err = s.loadPending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	// 2. An interrupted approval already created the account; only approve can finish it
	orphan, err := s.requestUser(ctx, req)
	if err != nil {
		return nil, err
	}
	if orphan != nil {
		return nil, domain.ErrApprovalStarted
	}

	// 3. Record the decision
	if err := req.Reject(actor.UserID, reason, s.now()); err != nil {
		return nil, err
	}
	if err := s.requests.SaveDecision(ctx, req); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return nil, domain.ErrRequestProcessed
		}
		return nil, storeError("save decision", err)
	}

	// 4. A concurrent approve may have created the account after step 2
	if orphan, err := s.requestUser(ctx, req); err != nil {
		log.Printf("⚠️ Orphan check after rejecting %s failed: %v", req.ID, err)
	} else if orphan != nil {
		s.revokeOrphan(ctx, req.ID, orphan)
	}

	if err := s.notifier.RegistrationDecided(ctx, req); err != nil {
		log.Printf("⚠️ Decision notification failed for %s: %v", req.ID, err)
	}

	log.Printf("✅ Registration rejected: %s by %s", req.Email, actor.UserID)
	return req, nil
}

func (s *RegistrationService) loadPending(ctx context.Context, requestID string) (*models.RegistrationRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, storeError("load registration", err)
	}
	if !req.IsPending() {
		return nil, domain.ErrRequestProcessed
	}
	return req, nil
}

// requestUser returns the user created from req, or nil when there is none
func (s *RegistrationService) requestUser(ctx context.Context, req *models.RegistrationRequest) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil && user.RegistrationRequestID == req.ID:
		return user, nil
	case err == nil, isNotFound(err):
		return nil, nil
	default:
		return nil, storeError("lookup user", err)
	}
}

// createUser allocates the next employee id and creates the active account
func (s *RegistrationService) createUser(ctx context.Context, req *models.RegistrationRequest) (*models.User, error) {
	seq, err := s.sequences.Next(ctx, domain.EmployeeSequence)
	if err != nil {
		return nil, storeError("allocate employee id", err)
	}

	now := s.now()
	user := &models.User{
		ID:                    ids.New(),
		EmployeeID:            FormatEmployeeID(seq),
		Name:                  req.Name,
		Email:                 req.Email,
		Password:              req.Password,
		Department:            req.Department,
		Position:              req.Position,
		Phone:                 req.Phone,
		Address:               req.Address,
		Role:                  req.Role,
		IsActive:              true,
		RegistrationRequestID: req.ID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, domain.ErrEmailRegistered
		}
		return nil, storeError("create user", err)
	}
	return user, nil
}

// revokeOrphan deactivates a user whose approval lost the race against
// another decision, unless the winning decision approved this same user
func (s *RegistrationService) revokeOrphan(ctx context.Context, requestID string, user *models.User) {
	ctx, cancel := withStoreTimeout(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
	defer cancel()

	current, err := s.requests.GetByID(ctx, requestID)
	if err == nil && current.Status == string(domain.StatusApproved) &&
		current.UserID != nil && *current.UserID == user.ID {
		return
	}

	if err := s.users.SetActive(ctx, user.ID, false); err != nil {
		log.Printf("❌ Failed to deactivate orphaned user %s: %v", user.ID, err)
		return
	}
	log.Printf("⚠️ Deactivated orphaned user %s", user.EmployeeID)
}

// FormatEmployeeID renders a sequence value as an employee id (EMP0001)
func FormatEmployeeID(seq int64) string {
	return fmt.Sprintf("EMP%04d", seq)
}
