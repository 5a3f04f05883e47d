package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stridewear/api/internal/domain"
)

type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates the MongoDB-backed user/address lookup.
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{collection: db.Collection(collUsers)}
}

func (m *mongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var user domain.User
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (m *mongoUserRepository) FindAddress(ctx context.Context, userID, addressID primitive.ObjectID) (*domain.Address, error) {
	user, err := m.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, addr := range user.Addresses {
		if addr.ID == addressID {
			return &addr, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mongoUserRepository) SearchIDs(ctx context.Context, term string) ([]primitive.ObjectID, error) {
	pattern := primitive.Regex{Pattern: term, Options: "i"}
	filter := bson.M{"$or": []bson.M{
		{"name": pattern},
		{"email": pattern},
		{"phone": pattern},
	}}

	cursor, err := m.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode user ids: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}
