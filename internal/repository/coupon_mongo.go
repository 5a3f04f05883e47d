package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stridewear/api/internal/domain"
)

type mongoCouponRepository struct {
	collection *mongo.Collection
}

// NewMongoCouponRepository creates the MongoDB-backed coupon ledger.
func NewMongoCouponRepository(db *mongo.Database) CouponRepository {
	return &mongoCouponRepository{collection: db.Collection(collCoupons)}
}

func (m *mongoCouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var coupon domain.Coupon
	err := m.collection.FindOne(ctx, bson.M{"code": strings.ToUpper(code)}).Decode(&coupon)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	return &coupon, nil
}

// Reserve claims one use in a single conditional update so concurrent
// checkouts cannot overrun the usage cap. The filter encodes the full
// eligibility rule; no match means the coupon cannot be used by this user
// right now.
func (m *mongoCouponRepository) Reserve(ctx context.Context, code string, userID primitive.ObjectID, now time.Time) (*domain.Coupon, error) {
	filter := bson.M{
		"code":      strings.ToUpper(code),
		"status":    "active",
		"startDate": bson.M{"$lte": now},
		"endDate":   bson.M{"$gte": now},
		"$and": []bson.M{
			{"$or": []bson.M{
				{"isPublic": true},
				{"users": userID},
			}},
			{"$or": []bson.M{
				{"maxUses": bson.M{"$lte": 0}},
				{"$expr": bson.M{"$lt": []string{"$currentUses", "$maxUses"}}},
			}},
		},
	}
	update := bson.M{"$inc": bson.M{"currentUses": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var coupon domain.Coupon
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&coupon)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCouponNotEligible
		}
		return nil, fmt.Errorf("failed to reserve coupon: %w", err)
	}
	return &coupon, nil
}

func (m *mongoCouponRepository) Release(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{"_id": id, "currentUses": bson.M{"$gt": 0}}
	update := bson.M{"$inc": bson.M{"currentUses": -1}}

	if _, err := m.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to release coupon: %w", err)
	}
	return nil
}
