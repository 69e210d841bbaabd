package mongostore

import (
	"context"
	"strings"

	"attendtrack/internal/adapters/persistence/models"
	"attendtrack/internal/adapters/persistence/repositories"
	"attendtrack/internal/core/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type registrationStore struct {
	coll *mongo.Collection
}

func (s *registrationStore) Create(ctx context.Context, req *models.RegistrationRequest) error {
	_, err := s.coll.InsertOne(ctx, req)
	return translate(err)
}

func (s *registrationStore) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.RegistrationRequest, error) {
	var req models.RegistrationRequest
	if err := s.coll.FindOne(ctx, filter, opts...).Decode(&req); err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (s *registrationStore) GetByID(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *registrationStore) GetActiveByEmail(ctx context.Context, email string) (*models.RegistrationRequest, error) {
	return s.findOne(ctx, bson.M{
		"email":  strings.ToLower(email),
		"status": bson.M{"$in": []string{string(domain.StatusPending), string(domain.StatusApproved)}},
	})
}

func (s *registrationStore) GetLatestByEmail(ctx context.Context, email string) (*models.RegistrationRequest, error) {
	return s.findOne(ctx,
		bson.M{"email": strings.ToLower(email)},
		options.FindOne().SetSort(bson.D{{Key: "submitted_at", Value: -1}}),
	)
}

func (s *registrationStore) List(ctx context.Context, status string, offset, limit int) ([]*models.RegistrationRequest, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err)
	}

	cur, err := s.coll.Find(ctx, filter, page("submitted_at", offset, limit))
	if err != nil {
		return nil, 0, translate(err)
	}

	reqs := make([]*models.RegistrationRequest, 0)
	if err := cur.All(ctx, &reqs); err != nil {
		return nil, 0, translate(err)
	}
	return reqs, total, nil
}

func (s *registrationStore) Stats(ctx context.Context) (*models.RegistrationStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate(err)
	}

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, translate(err)
	}

	stats := &models.RegistrationStats{}
	for _, row := range rows {
		switch domain.RequestStatus(row.Status) {
		case domain.StatusPending:
			stats.Pending = row.Count
		case domain.StatusApproved:
			stats.Approved = row.Count
		case domain.StatusRejected:
			stats.Rejected = row.Count
		}
		stats.Total += row.Count
	}
	return stats, nil
}

func (s *registrationStore) SaveDecision(ctx context.Context, req *models.RegistrationRequest) error {
	set := bson.M{"status": req.Status}
	unset := bson.M{}

	if req.ReviewedAt != nil {
		set["reviewed_at"] = *req.ReviewedAt
	}
	if req.ReviewedBy != nil {
		set["reviewed_by"] = *req.ReviewedBy
	}
	if req.RejectionReason != nil {
		set["rejection_reason"] = *req.RejectionReason
	}
	if req.UserID != nil {
		set["user_id"] = *req.UserID
	}
	if req.ActiveEmail == nil {
		unset["active_email"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": req.ID, "status": string(domain.StatusPending)},
		update,
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrStaleState
	}
	return nil
}
