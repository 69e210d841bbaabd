package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"attendtrack/internal/adapters/persistence/models"
	"attendtrack/internal/adapters/persistence/repositories"
	"attendtrack/internal/core/domain"
	"attendtrack/internal/pkg/ids"
	"attendtrack/internal/pkg/password"
)

// SeedAdminEmployeeID is the employee id given to the first bootstrap admin.
// ADMxxxx ids sit outside the EMPxxxx range so they never consume the sequence.
const SeedAdminEmployeeID = "ADM0001"

const maxSeedAdmins = 100

// Seeder handles database seeding
type Seeder struct {
	users  repositories.UserRepository
	hasher *password.Hasher
	seed   SeedConfig
}

// NewSeeder creates a new seeder instance
func NewSeeder(users repositories.UserRepository, hasher *password.Hasher, seed SeedConfig) *Seeder {
	return &Seeder{users: users, hasher: hasher, seed: seed}
}

// Run executes all seeders
func (s *Seeder) Run(ctx context.Context) error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(ctx); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser makes sure an active admin exists so that registration
// requests can be reviewed on a fresh install or after the last admin was
// deactivated
func (s *Seeder) seedAdminUser(ctx context.Context) error {
	if s.seed.AdminEmail == "" || s.seed.AdminPassword == "" {
		log.Println("⚠️ Skipping admin seed: SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD not set")
		return nil
	}

	exists, err := s.users.ExistsActiveByRole(ctx, string(domain.RoleAdmin))
	if err != nil {
		return err
	}
	if exists {
		return nil // Active admin already exists
	}

	email := strings.ToLower(strings.TrimSpace(s.seed.AdminEmail))

	// The seed account may be the admin that was deactivated
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.Role != string(domain.RoleAdmin):
		return fmt.Errorf("seed admin email %s belongs to a %s account", email, existing.Role)
	case err == nil:
		if err := s.users.SetActive(ctx, existing.ID, true); err != nil {
			return err
		}
		log.Printf("✅ Admin user reactivated: %s", email)
		return nil
	case !errors.Is(err, repositories.ErrNotFound):
		return err
	}

	hashedPassword, err := s.hasher.Hash(s.seed.AdminPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin := &models.User{
		ID:        ids.New(),
		Name:      "Administrator",
		Email:     email,
		Password:  hashedPassword,
		Role:      string(domain.RoleAdmin),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Deactivated admins keep their ADM ids, so take the first free one
	for n := 1; n <= maxSeedAdmins; n++ {
		admin.EmployeeID = fmt.Sprintf("ADM%04d", n)
		err = s.users.Create(ctx, admin)
		if !errors.Is(err, repositories.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s (%s)", admin.Email, admin.EmployeeID)
	return nil
}
