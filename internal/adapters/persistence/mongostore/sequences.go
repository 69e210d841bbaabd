package mongostore

import (
	"context"

	"attendtrack/internal/adapters/persistence/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type sequenceStore struct {
	coll *mongo.Collection
}

// Next atomically increments the named counter, creating it on first use
func (s *sequenceStore) Next(ctx context.Context, name string) (int64, error) {
	var seq models.Sequence
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&seq)
	if err != nil {
		return 0, translate(err)
	}
	return seq.Value, nil
}
