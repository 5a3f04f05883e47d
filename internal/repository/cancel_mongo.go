package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stridewear/api/internal/domain"
)

type mongoCancelRequestRepository struct {
	collection *mongo.Collection
}

// NewMongoCancelRequestRepository creates the MongoDB-backed cancel-request store.
func NewMongoCancelRequestRepository(db *mongo.Database) CancelRequestRepository {
	return &mongoCancelRequestRepository{collection: db.Collection(collCancelRequests)}
}

func (m *mongoCancelRequestRepository) Insert(ctx context.Context, req *domain.CancelRequest) (*domain.CancelRequest, error) {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	res, err := m.collection.InsertOne(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to insert cancel request: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		req.ID = id
	}
	return req, nil
}

func (m *mongoCancelRequestRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.CancelRequest, error) {
	var req domain.CancelRequest
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cancel request: %w", err)
	}
	return &req, nil
}

func (m *mongoCancelRequestRepository) Save(ctx context.Context, req *domain.CancelRequest) error {
	res, err := m.collection.ReplaceOne(ctx, bson.M{"_id": req.ID}, req)
	if err != nil {
		return fmt.Errorf("failed to save cancel request: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *mongoCancelRequestRepository) List(ctx context.Context, filter CancelRequestListFilter) ([]domain.CancelRequest, int64, error) {
	query := bson.M{}
	if filter.User != nil {
		query["user"] = *filter.User
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if len(filter.SearchUserIDs) > 0 || len(filter.SearchOrderIDs) > 0 {
		var or []bson.M
		if len(filter.SearchUserIDs) > 0 {
			or = append(or, bson.M{"user": bson.M{"$in": filter.SearchUserIDs}})
		}
		if len(filter.SearchOrderIDs) > 0 {
			or = append(or, bson.M{"order": bson.M{"$in": filter.SearchOrderIDs}})
		}
		query["$or"] = or
	}

	total, err := m.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count cancel requests: %w", err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := m.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cancel requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []domain.CancelRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, 0, fmt.Errorf("failed to decode cancel requests: %w", err)
	}
	return requests, total, nil
}
