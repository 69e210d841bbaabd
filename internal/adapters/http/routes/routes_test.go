package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"attendtrack/internal/adapters/http/middleware"
	"attendtrack/internal/adapters/persistence/memory"
	"attendtrack/internal/config"
	"attendtrack/internal/core/services"
	"attendtrack/internal/pkg/jwt"
	"attendtrack/internal/pkg/metrics"
	"attendtrack/internal/pkg/password"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminEmail    = "admin@x.com"
	adminPassword = "admin-secret"
	adminCode     = "letmein"
)

// captureMailer keeps the last reset token instead of sending mail
type captureMailer struct {
	mu    sync.Mutex
	token string
}

func (m *captureMailer) Enabled() bool { return true }

func (m *captureMailer) SendPasswordReset(ctx context.Context, to, name, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	app    *fiber.App
	mailer *captureMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		AppMode:      "dev",
		AdminCode:    adminCode,
		StoreTimeout: 2 * time.Second,
		AuthRateMax:  1000,
		PhoneRegion:  "US",
		JWT:          config.JWTConfig{Secret: "test-secret", Expiry: time.Hour},
		Seed:         config.SeedConfig{AdminEmail: adminEmail, AdminPassword: adminPassword},
	}

	repos := memory.NewStore().Repositories()
	hasher := password.NewHasher(bcrypt.MinCost)
	require.NoError(t, config.NewSeeder(repos.Users, hasher, cfg.Seed).Run(context.Background()))

	m := metrics.New()
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	mailer := &captureMailer{}
	notifications := services.NewNotificationService(repos.Notifications, nil, cfg)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(cfg)})
	Setup(app, &Dependencies{
		Config:        cfg,
		Database:      config.NewDatabase("memory", repos),
		Metrics:       m,
		Auth:          services.NewAuthService(repos, hasher, tokens, m, cfg),
		Registrations: services.NewRegistrationService(repos, hasher, notifications, m, cfg),
		PasswordReset: services.NewPasswordResetService(repos.Users, hasher, mailer, m, cfg),
		Users:         services.NewUserService(repos.Users, hasher, cfg),
		Notifications: notifications,
	})

	return &testServer{app: app, mailer: mailer}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) (int, apiResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s *testServer) login(t *testing.T, email, pass string) string {
	t.Helper()
	status, resp := s.do(t, http.MethodPost, "/api/v1/login", fiber.Map{"email": email, "password": pass}, "")
	require.Equal(t, http.StatusOK, status, resp.Error)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data.Token
}

func (s *testServer) register(t *testing.T, email, role string) string {
	t.Helper()
	status, resp := s.do(t, http.MethodPost, "/api/v1/register", fiber.Map{
		"name":       "Alice Smith",
		"email":      email,
		"password":   "secret1",
		"department": "Engineering",
		"position":   "Developer",
		"phone":      "(650) 253-0000",
		"address":    "1600 Amphitheatre Pkwy",
		"role":       role,
		"adminCode":  adminCode,
	}, "")
	require.Equal(t, http.StatusCreated, status, resp.Error)

	var data struct {
		RequestID string `json:"requestId"`
		Status    string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "pending", data.Status)
	return data.RequestID
}

func TestRegistrationApprovalFlow(t *testing.T) {
	s := newTestServer(t)
	id := s.register(t, "a@x.com", "")

	// pending registrant cannot log in yet
	status, resp := s.do(t, http.MethodPost, "/api/v1/login", fiber.Map{"email": "a@x.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, resp.Error, "awaiting")

	admin := s.login(t, adminEmail, adminPassword)

	status, resp = s.do(t, http.MethodGet, "/api/v1/registration-requests?status=pending", nil, admin)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Data), id)
	assert.NotContains(t, string(resp.Data), "secret1")

	status, resp = s.do(t, http.MethodPost, "/api/v1/approve-registration/"+id, nil, admin)
	require.Equal(t, http.StatusOK, status, resp.Error)
	var approved struct {
		User struct {
			EmployeeID string `json:"employeeId"`
			Role       string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &approved))
	assert.Equal(t, "EMP0001", approved.User.EmployeeID)
	assert.Equal(t, "employee", approved.User.Role)

	// decisions are final
	status, resp = s.do(t, http.MethodPost, "/api/v1/approve-registration/"+id, nil, admin)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "registration request has already been processed", resp.Error)

	employee := s.login(t, "a@x.com", "secret1")
	status, resp = s.do(t, http.MethodGet, "/api/v1/profile", nil, employee)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Data), "EMP0001")

	// employees cannot review
	status, _ = s.do(t, http.MethodGet, "/api/v1/registration-requests", nil, employee)
	assert.Equal(t, http.StatusForbidden, status)

	status, resp = s.do(t, http.MethodGet, "/api/v1/registration-stats", nil, admin)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"pending":0,"approved":1,"rejected":0,"total":1}`, string(resp.Data))
}

func TestRejectFlow(t *testing.T) {
	s := newTestServer(t)
	id := s.register(t, "a@x.com", "")
	admin := s.login(t, adminEmail, adminPassword)

	status, resp := s.do(t, http.MethodPost, "/api/v1/reject-registration/"+id, nil, admin)
	require.Equal(t, http.StatusOK, status, resp.Error)
	assert.Contains(t, string(resp.Data), "Registration request rejected by administrator")

	status, resp = s.do(t, http.MethodPost, "/api/v1/login", fiber.Map{"email": "a@x.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, resp.Error, "rejected")

	// the email is free again
	s.register(t, "a@x.com", "")
}

func TestRegisterErrors(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "a@x.com", "")

	tests := []struct {
		name   string
		body   fiber.Map
		status int
		errMsg string
	}{
		{
			name:   "wrong admin code",
			body:   fiber.Map{"name": "B", "email": "b@x.com", "password": "secret1", "department": "Ops", "position": "Tech", "phone": "6502530000", "address": "Street 1", "adminCode": "nope"},
			status: http.StatusBadRequest,
			errMsg: "invalid admin verification code",
		},
		{
			name:   "missing fields",
			body:   fiber.Map{"email": "b@x.com", "adminCode": adminCode},
			status: http.StatusBadRequest,
		},
		{
			name:   "duplicate pending email",
			body:   fiber.Map{"name": "A", "email": "A@x.com", "password": "secret1", "department": "Ops", "position": "Tech", "phone": "6502530000", "address": "Street 1", "adminCode": adminCode},
			status: http.StatusBadRequest,
			errMsg: "a registration request for this email is already pending or approved",
		},
		{
			name:   "admin email taken",
			body:   fiber.Map{"name": "A", "email": adminEmail, "password": "secret1", "department": "Ops", "position": "Tech", "phone": "6502530000", "address": "Street 1", "adminCode": adminCode},
			status: http.StatusBadRequest,
			errMsg: "email is already registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := s.do(t, http.MethodPost, "/api/v1/register", tt.body, "")
			assert.Equal(t, tt.status, status)
			assert.False(t, resp.Success)
			if tt.errMsg != "" {
				assert.Equal(t, tt.errMsg, resp.Error)
			}
		})
	}
}

func TestApproveUnknownRequest(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, adminEmail, adminPassword)

	status, resp := s.do(t, http.MethodPost, "/api/v1/approve-registration/missing", nil, admin)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "registration request not found", resp.Error)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	status, resp := s.do(t, http.MethodGet, "/api/v1/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Access token required", resp.Error)

	status, resp = s.do(t, http.MethodGet, "/api/v1/profile", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid access token", resp.Error)
}

func TestLoginGenericFailure(t *testing.T) {
	s := newTestServer(t)

	_, unknown := s.do(t, http.MethodPost, "/api/v1/login", fiber.Map{"email": "nobody@x.com", "password": "secret1"}, "")
	status, wrong := s.do(t, http.MethodPost, "/api/v1/login", fiber.Map{"email": adminEmail, "password": "wrong-pass"}, "")

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, unknown.Error, wrong.Error)
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)

	status, resp := s.do(t, http.MethodPost, "/api/v1/forgot-password", fiber.Map{"email": "nobody@x.com"}, "")
	require.Equal(t, http.StatusOK, status)
	ack := resp.Message

	status, resp = s.do(t, http.MethodPost, "/api/v1/forgot-password", fiber.Map{"email": adminEmail}, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, ack, resp.Message)
	require.NotEmpty(t, s.mailer.token)

	status, resp = s.do(t, http.MethodPost, "/api/v1/reset-password", fiber.Map{"token": s.mailer.token, "newPassword": "brand-new"}, "")
	require.Equal(t, http.StatusOK, status, resp.Error)

	s.login(t, adminEmail, "brand-new")

	status, resp = s.do(t, http.MethodPost, "/api/v1/reset-password", fiber.Map{"token": s.mailer.token, "newPassword": "again-new"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid or expired token", resp.Error)
}

func TestNotificationsInbox(t *testing.T) {
	s := newTestServer(t)
	id := s.register(t, "a@x.com", "hr")
	admin := s.login(t, adminEmail, adminPassword)

	status, resp := s.do(t, http.MethodGet, "/api/v1/notifications?unread=true", nil, admin)
	require.Equal(t, http.StatusOK, status)

	var inbox struct {
		Notifications []struct {
			ID          string `json:"id"`
			ReferenceID string `json:"referenceId"`
		} `json:"notifications"`
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &inbox))
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, id, inbox.Notifications[0].ReferenceID)

	status, _ = s.do(t, http.MethodPut, "/api/v1/notifications/"+inbox.Notifications[0].ID+"/read", nil, admin)
	require.Equal(t, http.StatusOK, status)

	status, resp = s.do(t, http.MethodGet, "/api/v1/notifications?unread=true", nil, admin)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &inbox))
	assert.Zero(t, inbox.Total)
}

func TestDeactivateIsAdminOnly(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, adminEmail, adminPassword)

	hrID := s.register(t, "hr@x.com", "hr")
	status, _ := s.do(t, http.MethodPost, "/api/v1/approve-registration/"+hrID, nil, admin)
	require.Equal(t, http.StatusOK, status)
	hr := s.login(t, "hr@x.com", "secret1")

	empID := s.register(t, "e@x.com", "")
	status, resp := s.do(t, http.MethodPost, "/api/v1/approve-registration/"+empID, nil, hr)
	require.Equal(t, http.StatusOK, status)
	var approved struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &approved))

	status, _ = s.do(t, http.MethodPost, "/api/v1/users/"+approved.User.ID+"/deactivate", nil, hr)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/users/"+approved.User.ID+"/deactivate", nil, admin)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/login", fiber.Map{"email": "e@x.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, resp := s.do(t, http.MethodGet, "/ready", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	res, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
