// Package memory implements the repository interfaces in process memory.
// It enforces the same uniqueness and conditional-update rules as the
// database adapters and is used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"attendtrack/internal/adapters/persistence/models"
	"attendtrack/internal/adapters/persistence/repositories"
	"attendtrack/internal/core/domain"
)

// Store holds all collections behind one lock
type Store struct {
	mu            sync.RWMutex
	users         map[string]models.User
	registrations map[string]models.RegistrationRequest
	notifications map[string]models.Notification
	sequences     map[string]int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:         make(map[string]models.User),
		registrations: make(map[string]models.RegistrationRequest),
		notifications: make(map[string]models.Notification),
		sequences:     make(map[string]int64),
	}
}

// Repositories exposes the store through the repository interfaces
func (s *Store) Repositories() *repositories.Repositories {
	return &repositories.Repositories{
		Users:         (*userRepo)(s),
		Registrations: (*registrationRepo)(s),
		Sequences:     (*sequenceRepo)(s),
		Notifications: (*notificationRepo)(s),
	}
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneUser(u models.User) *models.User {
	u.ResetTokenHash = clonePtr(u.ResetTokenHash)
	u.ResetTokenExpiresAt = clonePtr(u.ResetTokenExpiresAt)
	return &u
}

func cloneRequest(r models.RegistrationRequest) *models.RegistrationRequest {
	r.ActiveEmail = clonePtr(r.ActiveEmail)
	r.ReviewedAt = clonePtr(r.ReviewedAt)
	r.ReviewedBy = clonePtr(r.ReviewedBy)
	r.RejectionReason = clonePtr(r.RejectionReason)
	r.UserID = clonePtr(r.UserID)
	return &r
}

func bounds(n, offset, limit int) (int, int) {
	if offset > n {
		offset = n
	}
	end := offset + limit
	if end > n {
		end = n
	}
	return offset, end
}

// ---- users ----

type userRepo Store

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return repositories.ErrDuplicate
	}
	for _, u := range r.users {
		if u.Email == user.Email || u.EmployeeID == user.EmployeeID {
			return repositories.ErrDuplicate
		}
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.users[user.ID] = *cloneUser(*user)
	return nil
}

func (r *userRepo) find(ctx context.Context, match func(models.User) bool) (*models.User, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.find(ctx, func(u models.User) bool { return u.ID == id })
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	return r.find(ctx, func(u models.User) bool { return u.Email == email })
}

func (r *userRepo) GetActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	return r.find(ctx, func(u models.User) bool { return u.IsActive && u.Email == email })
}

func (r *userRepo) GetActiveByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	return r.find(ctx, func(u models.User) bool {
		return u.IsActive && u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash
	})
}

func (r *userRepo) mutate(ctx context.Context, id string, fn func(u *models.User) error) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if err := fn(&u); err != nil {
		return err
	}
	r.users[id] = u
	return nil
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	return r.mutate(ctx, user.ID, func(u *models.User) error {
		u.Name = user.Name
		u.Department = user.Department
		u.Position = user.Position
		u.Phone = user.Phone
		u.Address = user.Address
		u.UpdatedAt = time.Now()
		return nil
	})
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.mutate(ctx, id, func(u *models.User) error {
		u.Password = passwordHash
		u.UpdatedAt = time.Now()
		return nil
	})
}

func (r *userRepo) SetResetToken(ctx context.Context, id string, tokenHash *string, expiresAt *time.Time) error {
	return r.mutate(ctx, id, func(u *models.User) error {
		u.ResetTokenHash = clonePtr(tokenHash)
		u.ResetTokenExpiresAt = clonePtr(expiresAt)
		return nil
	})
}

func (r *userRepo) ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	err := r.mutate(ctx, id, func(u *models.User) error {
		if !u.IsActive || !u.HasValidResetToken(tokenHash, now) {
			return repositories.ErrStaleState
		}
		u.Password = passwordHash
		u.ResetTokenHash = nil
		u.ResetTokenExpiresAt = nil
		u.UpdatedAt = now
		return nil
	})
	if err == repositories.ErrNotFound {
		return repositories.ErrStaleState
	}
	return err
}

func (r *userRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, u := range r.users {
		if u.ResetTokenExpiresAt != nil && !u.ResetTokenExpiresAt.After(now) {
			u.ResetTokenHash = nil
			u.ResetTokenExpiresAt = nil
			r.users[id] = u
			n++
		}
	}
	return n, nil
}

func (r *userRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.mutate(ctx, id, func(u *models.User) error {
		u.IsActive = active
		u.UpdatedAt = time.Now()
		return nil
	})
}

func (r *userRepo) ExistsActiveByRole(ctx context.Context, role string) (bool, error) {
	_, err := r.find(ctx, func(u models.User) bool { return u.Role == role && u.IsActive })
	if err == repositories.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

// ---- registration requests ----

type registrationRepo Store

func (r *registrationRepo) Create(ctx context.Context, req *models.RegistrationRequest) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.registrations[req.ID]; ok {
		return repositories.ErrDuplicate
	}
	if req.ActiveEmail != nil {
		for _, existing := range r.registrations {
			if existing.ActiveEmail != nil && *existing.ActiveEmail == *req.ActiveEmail {
				return repositories.ErrDuplicate
			}
		}
	}

	r.registrations[req.ID] = *cloneRequest(*req)
	return nil
}

func (r *registrationRepo) sorted(match func(models.RegistrationRequest) bool) []models.RegistrationRequest {
	out := make([]models.RegistrationRequest, 0, len(r.registrations))
	for _, req := range r.registrations {
		if match(req) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

func (r *registrationRepo) first(ctx context.Context, match func(models.RegistrationRequest) bool) (*models.RegistrationRequest, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := r.sorted(match)
	if len(found) == 0 {
		return nil, repositories.ErrNotFound
	}
	return cloneRequest(found[0]), nil
}

func (r *registrationRepo) GetByID(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	return r.first(ctx, func(req models.RegistrationRequest) bool { return req.ID == id })
}

func (r *registrationRepo) GetActiveByEmail(ctx context.Context, email string) (*models.RegistrationRequest, error) {
	email = strings.ToLower(email)
	return r.first(ctx, func(req models.RegistrationRequest) bool {
		return req.Email == email && domain.RequestStatus(req.Status).Reserved()
	})
}

func (r *registrationRepo) GetLatestByEmail(ctx context.Context, email string) (*models.RegistrationRequest, error) {
	email = strings.ToLower(email)
	return r.first(ctx, func(req models.RegistrationRequest) bool { return req.Email == email })
}

func (r *registrationRepo) List(ctx context.Context, status string, offset, limit int) ([]*models.RegistrationRequest, int64, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.sorted(func(req models.RegistrationRequest) bool {
		return status == "" || req.Status == status
	})
	start, end := bounds(len(all), offset, limit)

	out := make([]*models.RegistrationRequest, 0, end-start)
	for _, req := range all[start:end] {
		out = append(out, cloneRequest(req))
	}
	return out, int64(len(all)), nil
}

func (r *registrationRepo) Stats(ctx context.Context) (*models.RegistrationStats, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.RegistrationStats{}
	for _, req := range r.registrations {
		switch domain.RequestStatus(req.Status) {
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusApproved:
			stats.Approved++
		case domain.StatusRejected:
			stats.Rejected++
		}
		stats.Total++
	}
	return stats, nil
}

func (r *registrationRepo) SaveDecision(ctx context.Context, req *models.RegistrationRequest) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.registrations[req.ID]
	if !ok || stored.Status != string(domain.StatusPending) {
		return repositories.ErrStaleState
	}

	stored.Status = req.Status
	stored.ActiveEmail = clonePtr(req.ActiveEmail)
	stored.ReviewedAt = clonePtr(req.ReviewedAt)
	stored.ReviewedBy = clonePtr(req.ReviewedBy)
	stored.RejectionReason = clonePtr(req.RejectionReason)
	stored.UserID = clonePtr(req.UserID)
	r.registrations[req.ID] = stored
	return nil
}

// ---- sequences ----

type sequenceRepo Store

func (r *sequenceRepo) Next(ctx context.Context, name string) (int64, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sequences[name]++
	return r.sequences[name], nil
}

// ---- notifications ----

type notificationRepo Store

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.notifications[n.ID]; ok {
		return repositories.ErrDuplicate
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	r.notifications[n.ID] = *n
	return nil
}

func (r *notificationRepo) List(ctx context.Context, unreadOnly bool, offset, limit int) ([]*models.Notification, int64, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]models.Notification, 0, len(r.notifications))
	for _, n := range r.notifications {
		if !unreadOnly || !n.IsRead {
			all = append(all, n)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	start, end := bounds(len(all), offset, limit)
	out := make([]*models.Notification, 0, end-start)
	for i := start; i < end; i++ {
		n := all[i]
		out = append(out, &n)
	}
	return out, int64(len(all)), nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok {
		return repositories.ErrNotFound
	}
	n.IsRead = true
	r.notifications[id] = n
	return nil
}
