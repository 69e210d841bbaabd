// Package mongostore implements the repository interfaces on MongoDB.
package mongostore

import (
	"context"
	"errors"

	"attendtrack/internal/adapters/persistence/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection         = "users"
	registrationsCollection = "registration_requests"
	notificationsCollection = "notifications"
	sequencesCollection     = "sequences"
)

// New wires the MongoDB adapters
func New(db *mongo.Database) *repositories.Repositories {
	return &repositories.Repositories{
		Users:         &userStore{coll: db.Collection(usersCollection)},
		Registrations: &registrationStore{coll: db.Collection(registrationsCollection)},
		Sequences:     &sequenceStore{coll: db.Collection(sequencesCollection)},
		Notifications: &notificationStore{coll: db.Collection(notificationsCollection)},
	}
}

// EnsureIndexes creates the indexes the repositories rely on for uniqueness
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "employee_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "reset_token_hash", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "role", Value: 1}}},
	})
	if err != nil {
		return err
	}

	// one pending/approved request per email: active_email only exists in those states
	_, err = db.Collection(registrationsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "active_email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "active_email", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "submitted_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "submitted_at", Value: -1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(notificationsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "is_read", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

// translate maps driver errors onto the store-level errors
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repositories.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicate
	}
	return err
}

// page returns find options for offset/limit pagination sorted by field descending
func page(sortField string, offset, limit int) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: sortField, Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
}
