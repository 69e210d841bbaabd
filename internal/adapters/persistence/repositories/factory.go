package repositories

import "gorm.io/gorm"

// NewGormRepositories wires the GORM adapters for MySQL or PostgreSQL
func NewGormRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(db),
		Registrations: NewRegistrationRepository(db),
		Sequences:     NewSequenceRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}
