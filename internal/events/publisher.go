package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/stridewear/api/internal/domain"
)

// Subjects for order lifecycle events. Downstream consumers (notifications,
// analytics) subscribe to these.
const (
	SubjectOrderCreated       = "orders.created"
	SubjectOrderStatusChanged = "orders.status_changed"
	SubjectOrderCancelled     = "orders.cancelled"
)

// Publisher emits order lifecycle events over NATS. Publishing is best
// effort: a broker outage must never fail the originating request, so
// errors are logged and swallowed.
type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// Connect dials the NATS server and returns a Publisher bound to it.
func Connect(url string, logger *slog.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("stridewear-orders"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, logger: logger}, nil
}

// Close drains the connection so buffered events flush before shutdown.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("failed to drain nats connection", slog.String("error", err.Error()))
	}
}

type orderCreatedEvent struct {
	OrderID       primitive.ObjectID `json:"orderId"`
	Code          string             `json:"code"`
	UserID        primitive.ObjectID `json:"userId"`
	Total         int64              `json:"total"`
	PaymentMethod string             `json:"paymentMethod"`
	CreatedAt     time.Time          `json:"createdAt"`
}

type orderStatusChangedEvent struct {
	OrderID  primitive.ObjectID `json:"orderId"`
	Code     string             `json:"code"`
	UserID   primitive.ObjectID `json:"userId"`
	Previous string             `json:"previous"`
	Current  string             `json:"current"`
	At       time.Time          `json:"at"`
}

type orderCancelledEvent struct {
	OrderID primitive.ObjectID `json:"orderId"`
	Code    string             `json:"code"`
	UserID  primitive.ObjectID `json:"userId"`
	Reason  string             `json:"reason"`
	At      time.Time          `json:"at"`
}

func (p *Publisher) OrderCreated(ctx context.Context, order *domain.Order) {
	p.publish(SubjectOrderCreated, orderCreatedEvent{
		OrderID:       order.ID,
		Code:          order.Code,
		UserID:        order.User,
		Total:         order.TotalAfterDiscountAndShipping,
		PaymentMethod: string(order.Payment.Method),
		CreatedAt:     order.CreatedAt,
	})
}

func (p *Publisher) OrderStatusChanged(ctx context.Context, order *domain.Order, previous domain.OrderStatus) {
	p.publish(SubjectOrderStatusChanged, orderStatusChangedEvent{
		OrderID:  order.ID,
		Code:     order.Code,
		UserID:   order.User,
		Previous: string(previous),
		Current:  string(order.Status),
		At:       order.UpdatedAt,
	})
}

func (p *Publisher) OrderCancelled(ctx context.Context, order *domain.Order, reason string) {
	at := order.UpdatedAt
	if order.CancelledAt != nil {
		at = *order.CancelledAt
	}
	p.publish(SubjectOrderCancelled, orderCancelledEvent{
		OrderID: order.ID,
		Code:    order.Code,
		UserID:  order.User,
		Reason:  reason,
		At:      at,
	})
}

func (p *Publisher) publish(subject string, payload any) {
	if p == nil || p.conn == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to marshal event", slog.String("subject", subject), slog.String("error", err.Error()))
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish event", slog.String("subject", subject), slog.String("error", err.Error()))
	}
}
