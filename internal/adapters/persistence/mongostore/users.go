package mongostore

import (
	"context"
	"strings"
	"time"

	"attendtrack/internal/adapters/persistence/models"
	"attendtrack/internal/adapters/persistence/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userStore struct {
	coll *mongo.Collection
}

func (s *userStore) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	_, err := s.coll.InsertOne(ctx, user)
	return translate(err)
}

func (s *userStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *userStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (s *userStore) GetActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": strings.ToLower(email), "is_active": true})
}

func (s *userStore) GetActiveByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"reset_token_hash": tokenHash, "is_active": true})
}

func (s *userStore) updateByID(ctx context.Context, id string, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (s *userStore) Update(ctx context.Context, user *models.User) error {
	return s.updateByID(ctx, user.ID, bson.M{"$set": bson.M{
		"name":       user.Name,
		"department": user.Department,
		"position":   user.Position,
		"phone":      user.Phone,
		"address":    user.Address,
		"updated_at": time.Now(),
	}})
}

func (s *userStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{
		"password":   passwordHash,
		"updated_at": time.Now(),
	}})
}

func (s *userStore) SetResetToken(ctx context.Context, id string, tokenHash *string, expiresAt *time.Time) error {
	if tokenHash == nil || expiresAt == nil {
		return s.updateByID(ctx, id, bson.M{"$unset": bson.M{
			"reset_token_hash":       "",
			"reset_token_expires_at": "",
		}})
	}
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{
		"reset_token_hash":       *tokenHash,
		"reset_token_expires_at": *expiresAt,
	}})
}

func (s *userStore) ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	filter := bson.M{
		"_id":                    id,
		"is_active":              true,
		"reset_token_hash":       tokenHash,
		"reset_token_expires_at": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"password": passwordHash, "updated_at": now},
		"$unset": bson.M{"reset_token_hash": "", "reset_token_expires_at": ""},
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrStaleState
	}
	return nil
}

func (s *userStore) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"reset_token_expires_at": bson.M{"$lte": now}},
		bson.M{"$unset": bson.M{"reset_token_hash": "", "reset_token_expires_at": ""}},
	)
	if err != nil {
		return 0, translate(err)
	}
	return res.ModifiedCount, nil
}

func (s *userStore) SetActive(ctx context.Context, id string, active bool) error {
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{
		"is_active":  active,
		"updated_at": time.Now(),
	}})
}

func (s *userStore) ExistsActiveByRole(ctx context.Context, role string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"role": role, "is_active": true}, options.Count().SetLimit(1))
	if err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}
