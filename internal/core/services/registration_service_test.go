package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"attendtrack/internal/adapters/persistence/models"
	"attendtrack/internal/adapters/persistence/repositories"
	"attendtrack/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) RegistrationSubmitted(ctx context.Context, req *models.RegistrationRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockNotifier) RegistrationDecided(ctx context.Context, req *models.RegistrationRequest) error {
	return m.Called(ctx, req).Error(0)
}

func TestSubmitCreatesPendingRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.registrations.Submit(ctx, registrationInput("  A@X.com "))
	require.NoError(t, err)
	assert.Equal(t, "pending", res.Status)
	assert.NotEmpty(t, res.RequestID)

	list, err := env.registrations.List(ctx, "pending", 1, 10)
	require.NoError(t, err)
	require.Len(t, list.Requests, 1)

	got := list.Requests[0]
	assert.Equal(t, res.RequestID, got.ID)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Equal(t, "employee", got.Role)
	assert.Equal(t, "+16502530000", got.Phone)

	stored, err := env.repos.Registrations.GetByID(ctx, res.RequestID)
	require.NoError(t, err)
	assert.True(t, env.hasher.Verify("secret1", stored.Password))
	assert.NotEqual(t, "secret1", stored.Password)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(in *SubmitRegistrationInput)
	}{
		{"missing name", func(in *SubmitRegistrationInput) { in.Name = "" }},
		{"missing department", func(in *SubmitRegistrationInput) { in.Department = " " }},
		{"missing address", func(in *SubmitRegistrationInput) { in.Address = "" }},
		{"malformed email", func(in *SubmitRegistrationInput) { in.Email = "not-an-email" }},
		{"short password", func(in *SubmitRegistrationInput) { in.Password = "12345" }},
		{"73 byte password", func(in *SubmitRegistrationInput) { in.Password = strings.Repeat("a", 73) }},
		{"password of 30 three-byte runes", func(in *SubmitRegistrationInput) { in.Password = strings.Repeat("€", 30) }},
		{"unparseable phone", func(in *SubmitRegistrationInput) { in.Phone = "12" }},
		{"unknown role", func(in *SubmitRegistrationInput) { in.Role = "superuser" }},
		{"missing admin code", func(in *SubmitRegistrationInput) { in.AdminCode = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			in := registrationInput("a@x.com")
			tt.modify(in)

			_, err := env.registrations.Submit(context.Background(), in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestSubmitPasswordLengthCountsBytes(t *testing.T) {
	env := newTestEnv(t)
	in := registrationInput("a@x.com")
	in.Password = "ééé"

	res, err := env.registrations.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "pending", res.Status)

	in = registrationInput("b@x.com")
	in.Password = strings.Repeat("€", 24)
	_, err = env.registrations.Submit(context.Background(), in)
	assert.NoError(t, err)
}

func TestSubmitAcceptsRequestedRole(t *testing.T) {
	env := newTestEnv(t)
	in := registrationInput("hr@x.com")
	in.Role = "HR"

	res, err := env.registrations.Submit(context.Background(), in)
	require.NoError(t, err)

	stored, err := env.repos.Registrations.GetByID(context.Background(), res.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "hr", stored.Role)
}

func TestSubmitInvalidAdminCode(t *testing.T) {
	env := newTestEnv(t)
	in := registrationInput("a@x.com")
	in.AdminCode = "wrong"

	_, err := env.registrations.Submit(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, err, domain.ErrInvalidAdminCode)

	stats, err := env.registrations.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func TestSubmitWhilePendingConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.submit(t, "a@x.com")

	_, err := env.registrations.Submit(context.Background(), registrationInput("A@x.com"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.ErrorIs(t, err, domain.ErrRequestInProgress)
}

func TestSubmitForExistingUserConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.approvedUser(t, "a@x.com")

	_, err := env.registrations.Submit(context.Background(), registrationInput("a@x.com"))
	assert.ErrorIs(t, err, domain.ErrEmailRegistered)
}

func TestSubmitAfterRejectionIsAllowed(t *testing.T) {
	env := newTestEnv(t)
	id := env.submit(t, "a@x.com")

	_, err := env.registrations.Reject(context.Background(), reviewer, id, "")
	require.NoError(t, err)

	res, err := env.registrations.Submit(context.Background(), registrationInput("a@x.com"))
	require.NoError(t, err)
	assert.NotEqual(t, id, res.RequestID)
}

func TestSubmitConcurrentSameEmail(t *testing.T) {
	env := newTestEnv(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.registrations.Submit(context.Background(), registrationInput("race@x.com"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
}

func TestSubmitNotifierFailureDoesNotFail(t *testing.T) {
	env := newTestEnv(t)
	notifier := new(mockNotifier)
	notifier.On("RegistrationSubmitted", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	svc := NewRegistrationService(env.repos, env.hasher, notifier, nil, env.cfg)

	res, err := svc.Submit(context.Background(), registrationInput("a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "pending", res.Status)
	notifier.AssertExpectations(t)
}

func TestApproveCreatesSequentialEmployees(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.approvedUser(t, "a@x.com")
	second := env.approvedUser(t, "b@x.com")

	assert.Equal(t, "EMP0001", first.EmployeeID)
	assert.Equal(t, "EMP0002", second.EmployeeID)
	assert.True(t, first.IsActive)
	assert.Equal(t, "employee", first.Role)

	stored, err := env.repos.Users.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, env.hasher.Verify("secret1", stored.Password))

	list, err := env.registrations.List(ctx, "approved", 1, 10)
	require.NoError(t, err)
	require.Len(t, list.Requests, 2)
	for _, req := range list.Requests {
		require.NotNil(t, req.ReviewedBy)
		assert.Equal(t, reviewer.UserID, *req.ReviewedBy)
		assert.NotNil(t, req.ReviewedAt)
		assert.Nil(t, req.RejectionReason)
	}
}

func TestApproveTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	id := env.submit(t, "a@x.com")

	_, err := env.registrations.Approve(context.Background(), reviewer, id)
	require.NoError(t, err)

	_, err = env.registrations.Approve(context.Background(), reviewer, id)
	assert.ErrorIs(t, err, domain.ErrRequestProcessed)

	_, err = env.registrations.Reject(context.Background(), reviewer, id, "late")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestApproveUnknownRequest(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registrations.Approve(context.Background(), reviewer, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.registrations.Reject(context.Background(), reviewer, "missing", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApproveRequiresReviewerRole(t *testing.T) {
	env := newTestEnv(t)
	id := env.submit(t, "a@x.com")

	_, err := env.registrations.Approve(context.Background(), Actor{UserID: "u1", Role: domain.RoleEmployee}, id)
	assert.ErrorIs(t, err, domain.ErrInsufficientRole)

	hr := Actor{UserID: "hr1", Role: domain.RoleHR}
	_, err = env.registrations.Approve(context.Background(), hr, id)
	assert.NoError(t, err)
}

func TestApproveEmailTakenByAnotherUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.submit(t, "a@x.com")

	require.NoError(t, env.repos.Users.Create(ctx, &models.User{
		ID:         "01HOTHER",
		EmployeeID: "ADM0001",
		Email:      "a@x.com",
		Role:       "admin",
		IsActive:   true,
	}))

	_, err := env.registrations.Approve(ctx, reviewer, id)
	assert.ErrorIs(t, err, domain.ErrEmailRegistered)

	req, err := env.repos.Registrations.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pending", req.Status)
}

func TestApproveResumesAfterInterruptedAttempt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.submit(t, "a@x.com")

	// user exists from a previous attempt that never recorded the decision
	require.NoError(t, env.repos.Users.Create(ctx, &models.User{
		ID:                    "01HPARTIAL",
		EmployeeID:            "EMP0007",
		Email:                 "a@x.com",
		Role:                  "employee",
		IsActive:              true,
		RegistrationRequestID: id,
	}))

	user, err := env.registrations.Approve(ctx, reviewer, id)
	require.NoError(t, err)
	assert.Equal(t, "01HPARTIAL", user.ID)
	assert.Equal(t, "EMP0007", user.EmployeeID)

	req, err := env.repos.Registrations.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "approved", req.Status)
	require.NotNil(t, req.UserID)
	assert.Equal(t, "01HPARTIAL", *req.UserID)

	next, err := env.repos.Sequences.Next(ctx, domain.EmployeeSequence)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
}

func TestRejectAfterInterruptedApprovalIsRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.submit(t, "a@x.com")

	require.NoError(t, env.repos.Users.Create(ctx, &models.User{
		ID:                    "01HPARTIAL",
		EmployeeID:            "EMP0007",
		Email:                 "a@x.com",
		Role:                  "employee",
		IsActive:              true,
		RegistrationRequestID: id,
	}))

	_, err := env.registrations.Reject(ctx, reviewer, id, "no")
	assert.ErrorIs(t, err, domain.ErrApprovalStarted)
	assert.ErrorIs(t, err, domain.ErrConflict)

	req, err := env.repos.Registrations.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pending", req.Status)

	// approving finishes the interrupted attempt
	user, err := env.registrations.Approve(ctx, reviewer, id)
	require.NoError(t, err)
	assert.Equal(t, "01HPARTIAL", user.ID)
}

// lateUserRepo hides the user on the first email lookup, as if a
// concurrent approve created it right after that lookup
type lateUserRepo struct {
	repositories.UserRepository
	lookups int
}

func (r *lateUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, repositories.ErrNotFound
	}
	return r.UserRepository.GetByEmail(ctx, email)
}

func TestRejectDeactivatesUserCreatedConcurrently(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.submit(t, "a@x.com")

	require.NoError(t, env.repos.Users.Create(ctx, &models.User{
		ID:                    "01HRACE",
		EmployeeID:            "EMP0001",
		Email:                 "a@x.com",
		Role:                  "employee",
		IsActive:              true,
		RegistrationRequestID: id,
	}))

	repos := *env.repos
	repos.Users = &lateUserRepo{UserRepository: env.repos.Users}
	svc := NewRegistrationService(&repos, env.hasher, env.notifications, nil, env.cfg)

	req, err := svc.Reject(ctx, reviewer, id, "no")
	require.NoError(t, err)
	assert.Equal(t, "rejected", req.Status)

	user, err := env.repos.Users.GetByID(ctx, "01HRACE")
	require.NoError(t, err)
	assert.False(t, user.IsActive)

	_, err = env.auth.Login(ctx, &LoginInput{Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrRegistrationRejected)
}

func TestApproveConcurrentCreatesOneUser(t *testing.T) {
	env := newTestEnv(t)
	id := env.submit(t, "a@x.com")

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.registrations.Approve(context.Background(), reviewer, id)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrConflict)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)

	user, err := env.repos.Users.GetActiveByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, id, user.RegistrationRequestID)
}

func TestRejectRecordsReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	withDefault, err := env.registrations.Reject(ctx, reviewer, env.submit(t, "a@x.com"), "  ")
	require.NoError(t, err)
	require.NotNil(t, withDefault.RejectionReason)
	assert.Equal(t, domain.DefaultRejectionReason, *withDefault.RejectionReason)
	assert.Equal(t, "rejected", withDefault.Status)

	custom, err := env.registrations.Reject(ctx, reviewer, env.submit(t, "b@x.com"), "Unknown department")
	require.NoError(t, err)
	assert.Equal(t, "Unknown department", *custom.RejectionReason)

	_, err = env.repos.Users.GetByEmail(ctx, "a@x.com")
	assert.Error(t, err, "rejection must not create a user")
}

func TestDecisionsArePublished(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	approved := env.submit(t, "a@x.com")
	_, err := env.registrations.Approve(ctx, reviewer, approved)
	require.NoError(t, err)
	rejected := env.submit(t, "b@x.com")
	_, err = env.registrations.Reject(ctx, reviewer, rejected, "")
	require.NoError(t, err)

	var types []string
	for _, e := range env.publisher.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{
		EventRegistrationSubmitted,
		EventRegistrationApproved,
		EventRegistrationSubmitted,
		EventRegistrationRejected,
	}, types)
	assert.Equal(t, []string{approved, approved, rejected, rejected}, env.publisher.keys)
}

func TestListAndStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		env.submit(t, email)
	}
	env.approvedUser(t, "d@x.com")
	_, err := env.registrations.Reject(ctx, reviewer, env.submit(t, "e@x.com"), "")
	require.NoError(t, err)

	page, err := env.registrations.List(ctx, "", 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Requests, 2)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)

	pending, err := env.registrations.List(ctx, "pending", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pending.Total)

	_, err = env.registrations.List(ctx, "archived", 1, 10)
	assert.ErrorIs(t, err, domain.ErrValidation)

	stats, err := env.registrations.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.RegistrationStats{Pending: 3, Approved: 1, Rejected: 1, Total: 5}, stats)
}

func TestStoreDeadlineIsServiceUnavailable(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.registrations.Stats(ctx)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestFormatEmployeeID(t *testing.T) {
	assert.Equal(t, "EMP0001", FormatEmployeeID(1))
	assert.Equal(t, "EMP0042", FormatEmployeeID(42))
	assert.Equal(t, "EMP12345", FormatEmployeeID(12345))
}
