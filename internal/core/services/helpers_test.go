package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"attendtrack/internal/adapters/persistence/memory"
	"attendtrack/internal/adapters/persistence/models"
	"attendtrack/internal/adapters/persistence/repositories"
	"attendtrack/internal/config"
	"attendtrack/internal/pkg/jwt"
	"attendtrack/internal/pkg/password"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testAdminCode = "letmein"

func testConfig() *config.Config {
	return &config.Config{
		AppMode:      "dev",
		AdminCode:    testAdminCode,
		StoreTimeout: 2 * time.Second,
		PhoneRegion:  "US",
		JWT: config.JWTConfig{
			Secret: "test-secret",
			Expiry: time.Hour,
		},
	}
}

type sentMail struct {
	to, name, token string
}

// fakeMailer records deliveries and can be told to fail
type fakeMailer struct {
	mu       sync.Mutex
	disabled bool
	err      error
	sent     []sentMail
}

func (m *fakeMailer) Enabled() bool { return !m.disabled }

func (m *fakeMailer) SendPasswordReset(ctx context.Context, to, name, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, name: name, token: token})
	return nil
}

func (m *fakeMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

// fakePublisher records published events
type fakePublisher struct {
	mu     sync.Mutex
	err    error
	keys   []string
	events []RegistrationEvent
}

func (p *fakePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.events = append(p.events, value.(RegistrationEvent))
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type testEnv struct {
	cfg           *config.Config
	store         *memory.Store
	repos         *repositories.Repositories
	hasher        *password.Hasher
	tokens        *jwt.Manager
	mailer        *fakeMailer
	publisher     *fakePublisher
	notifications *NotificationService
	registrations *RegistrationService
	auth          *AuthService
	reset         *PasswordResetService
	users         *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := testConfig()
	store := memory.NewStore()
	repos := store.Repositories()
	hasher := password.NewHasher(bcrypt.MinCost)
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	mailer := &fakeMailer{}
	publisher := &fakePublisher{}
	notifications := NewNotificationService(repos.Notifications, publisher, cfg)

	return &testEnv{
		cfg:           cfg,
		store:         store,
		repos:         repos,
		hasher:        hasher,
		tokens:        tokens,
		mailer:        mailer,
		publisher:     publisher,
		notifications: notifications,
		registrations: NewRegistrationService(repos, hasher, notifications, nil, cfg),
		auth:          NewAuthService(repos, hasher, tokens, nil, cfg),
		reset:         NewPasswordResetService(repos.Users, hasher, mailer, nil, cfg),
		users:         NewUserService(repos.Users, hasher, cfg),
	}
}

func registrationInput(email string) *SubmitRegistrationInput {
	return &SubmitRegistrationInput{
		Name:       "Alice Smith",
		Email:      email,
		Password:   "secret1",
		Department: "Engineering",
		Position:   "Developer",
		Phone:      "(650) 253-0000",
		Address:    "1600 Amphitheatre Pkwy",
		AdminCode:  testAdminCode,
	}
}

var reviewer = Actor{UserID: "01HADMIN", Role: "admin"}

// submit stores a pending request and returns its id
func (e *testEnv) submit(t *testing.T, email string) string {
	t.Helper()
	res, err := e.registrations.Submit(context.Background(), registrationInput(email))
	require.NoError(t, err)
	return res.RequestID
}

// approvedUser submits and approves a registration
func (e *testEnv) approvedUser(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := e.registrations.Approve(context.Background(), reviewer, e.submit(t, email))
	require.NoError(t, err)
	return user
}
