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

type mongoInventoryRepository struct {
	collection *mongo.Collection
}

// NewMongoInventoryRepository creates the MongoDB-backed variant inventory store.
func NewMongoInventoryRepository(db *mongo.Database) InventoryRepository {
	return &mongoInventoryRepository{collection: db.Collection(collVariants)}
}

func (m *mongoInventoryRepository) FindVariant(ctx context.Context, id primitive.ObjectID) (*domain.Variant, error) {
	var variant domain.Variant
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&variant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get variant: %w", err)
	}
	return &variant, nil
}

// DeductStock is a single conditional update: the size entry must be
// available and hold at least quantity units, otherwise no document matches
// and the caller sees ErrInsufficientStock. This closes the check-then-write
// race window; quantity can never go negative.
func (m *mongoInventoryRepository) DeductStock(ctx context.Context, variantID, sizeID primitive.ObjectID, quantity int) error {
	filter := bson.M{
		"_id": variantID,
		"sizes": bson.M{"$elemMatch": bson.M{
			"size":            sizeID,
			"isSizeAvailable": true,
			"quantity":        bson.M{"$gte": quantity},
		}},
	}
	update := bson.M{
		"$inc": bson.M{"sizes.$.quantity": -quantity},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	res, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to deduct stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrInsufficientStock
	}

	return m.recomputeAvailability(ctx, variantID, sizeID)
}

func (m *mongoInventoryRepository) RestoreStock(ctx context.Context, variantID, sizeID primitive.ObjectID, quantity int) error {
	filter := bson.M{
		"_id":        variantID,
		"sizes.size": sizeID,
	}
	update := bson.M{
		"$inc": bson.M{"sizes.$.quantity": quantity},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	res, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return m.recomputeAvailability(ctx, variantID, sizeID)
}

// recomputeAvailability re-derives isSizeAvailable from the current quantity
// for one size entry. Runs after every mutation so the flag never drifts.
func (m *mongoInventoryRepository) recomputeAvailability(ctx context.Context, variantID, sizeID primitive.ObjectID) error {
	// Two targeted writes: sold-out entries get false, in-stock entries true.
	// At most one of them matches the size entry.
	soldOut := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"s.size": sizeID, "s.quantity": bson.M{"$lte": 0}}},
	})
	if _, err := m.collection.UpdateOne(ctx, bson.M{"_id": variantID},
		bson.M{"$set": bson.M{"sizes.$[s].isSizeAvailable": false}}, soldOut); err != nil {
		return fmt.Errorf("failed to recompute availability: %w", err)
	}

	inStock := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"s.size": sizeID, "s.quantity": bson.M{"$gt": 0}}},
	})
	if _, err := m.collection.UpdateOne(ctx, bson.M{"_id": variantID},
		bson.M{"$set": bson.M{"sizes.$[s].isSizeAvailable": true}}, inStock); err != nil {
		return fmt.Errorf("failed to recompute availability: %w", err)
	}

	return nil
}
