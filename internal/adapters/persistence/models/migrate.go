package models

import "gorm.io/gorm"

// AutoMigrate creates or updates the SQL schema
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RegistrationRequest{},
		&Notification{},
		&Sequence{},
	)
}
