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

type mongoOrderRepository struct {
	collection *mongo.Collection
}

// NewMongoOrderRepository creates the MongoDB-backed order store.
func NewMongoOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{collection: db.Collection(collOrders)}
}

func (m *mongoOrderRepository) Insert(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	res, err := m.collection.InsertOne(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return order, nil
}

func (m *mongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	var order domain.Order
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (m *mongoOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	order.UpdatedAt = time.Now().UTC()

	res, err := m.collection.ReplaceOne(ctx, bson.M{"_id": order.ID}, order)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RequestCancellation only matches a confirmed order whose gate is down, so
// concurrent cancel calls race on the document update instead of the service
// check.
func (m *mongoOrderRepository) RequestCancellation(ctx context.Context, orderID, requestID primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"_id":              orderID,
		"status":           domain.OrderStatusConfirmed,
		"hasCancelRequest": false,
	}
	update := bson.M{
		"$set": bson.M{
			"hasCancelRequest": true,
			"cancelRequestId":  requestID,
			"updatedAt":        time.Now().UTC(),
		},
	}

	res, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to set cancel gate: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (m *mongoOrderRepository) List(ctx context.Context, filter OrderListFilter) ([]domain.Order, int64, error) {
	query := bson.M{}
	if filter.User != nil {
		query["user"] = *filter.User
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: filter.Search, Options: "i"}
		or := []bson.M{
			{"code": pattern},
			{"shippingAddress.name": pattern},
			{"shippingAddress.phone": pattern},
		}
		if len(filter.SearchUserIDs) > 0 {
			or = append(or, bson.M{"user": bson.M{"$in": filter.SearchUserIDs}})
		}
		query["$or"] = or
	}

	total, err := m.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := m.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, total, nil
}

func (m *mongoOrderRepository) StatusCounts(ctx context.Context, userID primitive.ObjectID) (domain.OrderStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": userID}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := m.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.OrderStats{}, fmt.Errorf("failed to aggregate order stats: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status domain.OrderStatus `bson:"_id"`
		Count  int64              `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return domain.OrderStats{}, fmt.Errorf("failed to decode order stats: %w", err)
	}

	var stats domain.OrderStats
	for _, row := range rows {
		switch row.Status {
		case domain.OrderStatusPending:
			stats.Pending = row.Count
		case domain.OrderStatusConfirmed:
			stats.Confirmed = row.Count
		case domain.OrderStatusShipping:
			stats.Shipping = row.Count
		case domain.OrderStatusDelivered:
			stats.Delivered = row.Count
		case domain.OrderStatusCancelled:
			stats.Cancelled = row.Count
		}
		stats.Total += row.Count
	}
	return stats, nil
}

func (m *mongoOrderRepository) FindIDsByCode(ctx context.Context, search string) ([]primitive.ObjectID, error) {
	filter := bson.M{"code": primitive.Regex{Pattern: search, Options: "i"}}

	cursor, err := m.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to search order codes: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode order ids: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// normalizePage clamps paging parameters to sane bounds.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
