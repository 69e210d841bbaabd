package mongostore

import (
	"context"
	"time"

	"attendtrack/internal/adapters/persistence/models"
	"attendtrack/internal/adapters/persistence/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type notificationStore struct {
	coll *mongo.Collection
}

func (s *notificationStore) Create(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err := s.coll.InsertOne(ctx, n)
	return translate(err)
}

func (s *notificationStore) List(ctx context.Context, unreadOnly bool, offset, limit int) ([]*models.Notification, int64, error) {
	filter := bson.M{}
	if unreadOnly {
		filter["is_read"] = false
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err)
	}

	cur, err := s.coll.Find(ctx, filter, page("created_at", offset, limit))
	if err != nil {
		return nil, 0, translate(err)
	}

	items := make([]*models.Notification, 0)
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, translate(err)
	}
	return items, total, nil
}

func (s *notificationStore) MarkRead(ctx context.Context, id string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
