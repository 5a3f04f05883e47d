package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/stridewear/api/internal"
	"github.com/stridewear/api/internal/domain"
	"github.com/stridewear/api/internal/repository"
	"github.com/stridewear/api/internal/telemetry"
)

// EventPublisher emits order lifecycle events to downstream consumers.
// Implementations must be best effort; the service never checks for publish
// failures.
type EventPublisher interface {
	OrderCreated(ctx context.Context, order *domain.Order)
	OrderStatusChanged(ctx context.Context, order *domain.Order, previous domain.OrderStatus)
	OrderCancelled(ctx context.Context, order *domain.Order, reason string)
}

// OrderListQuery narrows order listings. Search matches order codes and, for
// admin listings, customer name/email/phone.
type OrderListQuery struct {
	Status domain.OrderStatus
	Search string
	Page   int
	Limit  int
}

// CancelRequestListQuery narrows cancel-request listings.
type CancelRequestListQuery struct {
	Status domain.CancelRequestStatus
	Search string
	Page   int
	Limit  int
}

// OrderPage is one page of orders. Stats is populated only for the
// per-user listing.
type OrderPage struct {
	Orders     []domain.Order     `json:"orders"`
	Pagination domain.Pagination  `json:"pagination"`
	Stats      *domain.OrderStats `json:"stats,omitempty"`
}

// CancelRequestPage is one page of cancellation requests.
type CancelRequestPage struct {
	Requests   []domain.CancelRequest `json:"cancelRequests"`
	Pagination domain.Pagination      `json:"pagination"`
}

// CancelOrderResult is the outcome of a customer cancellation. Order is set
// only when the cancellation was applied immediately.
type CancelOrderResult struct {
	Message       string                `json:"message"`
	AutoApproved  bool                  `json:"autoApproved"`
	CancelRequest *domain.CancelRequest `json:"cancelRequest"`
	Order         *domain.Order         `json:"order,omitempty"`
}

// StatusUpdateResult summarizes one applied status transition.
type StatusUpdateResult struct {
	OrderID        primitive.ObjectID `json:"orderId"`
	Code           string             `json:"code"`
	PreviousStatus domain.OrderStatus `json:"previousStatus"`
	CurrentStatus  domain.OrderStatus `json:"currentStatus"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// CancelDecisionResult summarizes one adjudicated cancel request, including
// decision changes within the reversal window.
type CancelDecisionResult struct {
	Message       string                `json:"message"`
	Reversed      bool                  `json:"reversed"`
	CancelRequest *domain.CancelRequest `json:"cancelRequest"`
	Order         *domain.Order         `json:"order"`
}

// OrderService provides the order lifecycle business logic: checkout,
// status transitions, cancellation, and listings for both customers and
// admins.
type OrderService interface {
	// CreateOrder turns the user's selected cart lines into an order.
	CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error)

	// GetUserOrders lists a user's own orders with per-status stats.
	GetUserOrders(ctx context.Context, userID primitive.ObjectID, q OrderListQuery) (*OrderPage, error)

	// GetOrderByID fetches one order, enforcing ownership.
	GetOrderByID(ctx context.Context, userID, orderID primitive.ObjectID) (*domain.Order, error)

	// CancelOrder files a cancellation. Pending orders cancel immediately;
	// confirmed orders get a pending request for admin review.
	CancelOrder(ctx context.Context, userID, orderID primitive.ObjectID, reason string) (*CancelOrderResult, error)

	// GetUserCancelRequests lists the user's own cancellation requests.
	GetUserCancelRequests(ctx context.Context, userID primitive.ObjectID, q CancelRequestListQuery) (*CancelRequestPage, error)

	// GetAllOrders lists orders across all users (admin).
	GetAllOrders(ctx context.Context, q OrderListQuery) (*OrderPage, error)

	// GetOrderDetail fetches any order without an ownership check (admin).
	GetOrderDetail(ctx context.Context, orderID primitive.ObjectID) (*domain.Order, error)

	// UpdateOrderStatus applies one forward transition of the state machine
	// (admin).
	UpdateOrderStatus(ctx context.Context, adminID, orderID primitive.ObjectID, target domain.OrderStatus, note string) (*StatusUpdateResult, error)

	// GetCancelRequests lists cancellation requests across all users (admin).
	GetCancelRequests(ctx context.Context, q CancelRequestListQuery) (*CancelRequestPage, error)

	// ProcessCancelRequest records an admin decision on a cancel request,
	// including reversing an earlier decision within the reversal window.
	ProcessCancelRequest(ctx context.Context, adminID, requestID primitive.ObjectID, decision domain.CancelRequestStatus, adminResponse string) (*CancelDecisionResult, error)

	// MarkOrderPaid records a successful gateway payment for a VNPAY order
	// and performs the deferred inventory deduction.
	MarkOrderPaid(ctx context.Context, orderID primitive.ObjectID, transactionNo string) (*domain.Order, error)
}

type orderService struct {
	orders    repository.OrderRepository
	cancels   repository.CancelRequestRepository
	carts     repository.CartRepository
	inventory repository.InventoryRepository
	coupons   repository.CouponRepository
	users     repository.UserRepository

	events  EventPublisher
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger

	shippingFee           int64
	freeShippingThreshold int64
	reversalWindow        time.Duration

	now func() time.Time
}

// NewOrderService creates the order lifecycle service. events and metrics
// may be nil, which disables publishing and instrumentation respectively.
func NewOrderService(
	orders repository.OrderRepository,
	cancels repository.CancelRequestRepository,
	carts repository.CartRepository,
	inventory repository.InventoryRepository,
	coupons repository.CouponRepository,
	users repository.UserRepository,
	events EventPublisher,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
	cfg internal.CheckoutConfig,
) OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &orderService{
		orders:                orders,
		cancels:               cancels,
		carts:                 carts,
		inventory:             inventory,
		coupons:               coupons,
		users:                 users,
		events:                events,
		metrics:               metrics,
		logger:                logger,
		shippingFee:           cfg.ShippingFee,
		freeShippingThreshold: cfg.FreeShippingThreshold,
		reversalWindow:        time.Duration(cfg.CancelReversalWindowHours) * time.Hour,
		now:                   func() time.Time { return time.Now().UTC() },
	}
}

func (s *orderService) GetUserOrders(ctx context.Context, userID primitive.ObjectID, q OrderListQuery) (*OrderPage, error) {
	const op = "order.list_user"

	if q.Status != "" && !domain.ValidOrderStatus(q.Status) {
		return nil, domain.Invalid(op, "invalid order status filter")
	}

	filter := repository.OrderListFilter{
		User:   &userID,
		Status: q.Status,
		Search: q.Search,
		Page:   q.Page,
		Limit:  q.Limit,
	}
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list orders")
	}

	stats, err := s.orders.StatusCounts(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to compute order stats")
	}

	page, limit := normalizeQueryPage(q.Page, q.Limit)
	return &OrderPage{
		Orders:     orders,
		Pagination: domain.NewPagination(page, limit, total),
		Stats:      &stats,
	}, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, userID, orderID primitive.ObjectID) (*domain.Order, error) {
	const op = "order.get"

	order, err := s.findOrder(ctx, op, orderID)
	if err != nil {
		return nil, err
	}
	if order.User != userID {
		return nil, domain.Forbidden(op, "you do not have access to this order")
	}
	return order, nil
}

func (s *orderService) GetAllOrders(ctx context.Context, q OrderListQuery) (*OrderPage, error) {
	const op = "order.list_all"

	if q.Status != "" && !domain.ValidOrderStatus(q.Status) {
		return nil, domain.Invalid(op, "invalid order status filter")
	}

	filter := repository.OrderListFilter{
		Status: q.Status,
		Search: q.Search,
		Page:   q.Page,
		Limit:  q.Limit,
	}
	if q.Search != "" {
		// Admin search also matches customers. Resolve matching user ids up
		// front so the order query stays on one collection.
		userIDs, err := s.users.SearchIDs(ctx, q.Search)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to search users")
		}
		filter.SearchUserIDs = userIDs
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list orders")
	}

	page, limit := normalizeQueryPage(q.Page, q.Limit)
	return &OrderPage{
		Orders:     orders,
		Pagination: domain.NewPagination(page, limit, total),
	}, nil
}

func (s *orderService) GetOrderDetail(ctx context.Context, orderID primitive.ObjectID) (*domain.Order, error) {
	return s.findOrder(ctx, "order.detail", orderID)
}

func (s *orderService) GetUserCancelRequests(ctx context.Context, userID primitive.ObjectID, q CancelRequestListQuery) (*CancelRequestPage, error) {
	const op = "cancel_request.list_user"

	if q.Status != "" && q.Status != domain.CancelRequestPending && !domain.ValidCancelDecision(q.Status) {
		return nil, domain.Invalid(op, "invalid cancel request status filter")
	}

	filter := repository.CancelRequestListFilter{
		User:   &userID,
		Status: q.Status,
		Page:   q.Page,
		Limit:  q.Limit,
	}
	requests, total, err := s.cancels.List(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list cancel requests")
	}

	page, limit := normalizeQueryPage(q.Page, q.Limit)
	return &CancelRequestPage{
		Requests:   requests,
		Pagination: domain.NewPagination(page, limit, total),
	}, nil
}

func (s *orderService) GetCancelRequests(ctx context.Context, q CancelRequestListQuery) (*CancelRequestPage, error) {
	const op = "cancel_request.list_all"

	if q.Status != "" && q.Status != domain.CancelRequestPending && !domain.ValidCancelDecision(q.Status) {
		return nil, domain.Invalid(op, "invalid cancel request status filter")
	}

	filter := repository.CancelRequestListFilter{
		Status: q.Status,
		Page:   q.Page,
		Limit:  q.Limit,
	}
	if q.Search != "" {
		userIDs, err := s.users.SearchIDs(ctx, q.Search)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to search users")
		}
		orderIDs, err := s.orders.FindIDsByCode(ctx, q.Search)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to search orders")
		}
		if len(userIDs) == 0 && len(orderIDs) == 0 {
			// Nothing matches the term; short-circuit instead of returning
			// the unfiltered listing.
			page, limit := normalizeQueryPage(q.Page, q.Limit)
			return &CancelRequestPage{
				Requests:   []domain.CancelRequest{},
				Pagination: domain.NewPagination(page, limit, 0),
			}, nil
		}
		filter.SearchUserIDs = userIDs
		filter.SearchOrderIDs = orderIDs
	}

	requests, total, err := s.cancels.List(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list cancel requests")
	}

	page, limit := normalizeQueryPage(q.Page, q.Limit)
	return &CancelRequestPage{
		Requests:   requests,
		Pagination: domain.NewPagination(page, limit, total),
	}, nil
}

// findOrder fetches an order and maps the storage sentinel to a 404.
func (s *orderService) findOrder(ctx context.Context, op string, orderID primitive.ObjectID) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound(op, "order", orderID.Hex())
		}
		return nil, domain.Internal(err, op, "failed to get order")
	}
	return order, nil
}

// normalizeQueryPage mirrors the storage layer's clamping so the returned
// pagination envelope matches the page that was actually queried.
func normalizeQueryPage(page, limit int) (int, int) {
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
