package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"attendtrack/internal/adapters/persistence/models"
	"attendtrack/internal/adapters/persistence/repositories"
	"attendtrack/internal/config"
	"attendtrack/internal/core/domain"
	"attendtrack/internal/pkg/jwt"
	"attendtrack/internal/pkg/metrics"
)

// AuthService handles authentication business logic
type AuthService struct {
	users    repositories.UserRepository
	requests repositories.RegistrationRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	metrics  *metrics.Metrics
	cfg      *config.Config

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new auth service
func NewAuthService(
	repos *repositories.Repositories,
	hasher PasswordHasher,
	tokens TokenIssuer,
	m *metrics.Metrics,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		users:    repos.Users,
		requests: repos.Registrations,
		hasher:   hasher,
		tokens:   tokens,
		metrics:  m,
		cfg:      cfg,
	}
}

// LoginInput represents login input
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expiresAt"`
	User      *models.UserResponse `json:"user"`
}

// Login authenticates a user. Registrants without an account are told
// whether their request is still pending or was rejected.
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (resp *AuthResponse, err error) {
	defer func() { s.metrics.ObserveLogin(outcome(err)) }()

	// 1. Validate input
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, domain.Validation("email and password are required")
	}

	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	// 2. Find active user
	user, err := s.users.GetActiveByEmail(ctx, email)
	if err != nil {
		if !isNotFound(err) {
			return nil, storeError("lookup user", err)
		}
		s.burnVerify(input.Password)
		return nil, s.registrationGate(ctx, email)
	}

	// 3. Verify password
	if !s.hasher.Verify(input.Password, user.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	// 4. Issue session token
	token, expiresAt, err := s.tokens.Generate(user.ID, user.EmployeeID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ User logged in: %s (%s)", user.Email, user.EmployeeID)

	return &AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.ToResponse(),
	}, nil
}

// registrationGate explains why an email without an active account cannot log in
func (s *AuthService) registrationGate(ctx context.Context, email string) error {
	req, err := s.requests.GetLatestByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return domain.ErrInvalidCredentials
		}
		return storeError("lookup registration", err)
	}

	switch domain.RequestStatus(req.Status) {
	case domain.StatusPending:
		return domain.ErrAwaitingApproval
	case domain.StatusRejected:
		return domain.ErrRegistrationRejected
	default:
		return domain.ErrInvalidCredentials
	}
}

// burnVerify runs a hash comparison for unknown emails so response time
// does not reveal whether an account exists
func (s *AuthService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("attendtrack-unknown-account")
		if err != nil {
			log.Printf("⚠️ Failed to prepare dummy hash: %v", err)
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		s.hasher.Verify(password, s.dummyHash)
	}
}

// ValidateAccessToken validates a session token
func (s *AuthService) ValidateAccessToken(accessToken string) (*jwt.Claims, error) {
	claims, err := s.tokens.Validate(accessToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, err
		}
		return nil, jwt.ErrTokenInvalid
	}
	return claims, nil
}
