package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/stridewear/api/internal"
	"github.com/stridewear/api/internal/domain"
	"github.com/stridewear/api/internal/repository"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockOrderRepo is an in-memory OrderRepository with injectable failures.
type mockOrderRepo struct {
	orders map[primitive.ObjectID]*domain.Order

	insertErr error
	findErr   error
	saveErr   error

	saveCalls   int
	lastSaved   *domain.Order
	lastFilter  repository.OrderListFilter
	listOrders  []domain.Order
	listTotal   int64
	stats       domain.OrderStats
	codeMatches []primitive.ObjectID
}

func newMockOrderRepo(orders ...*domain.Order) *mockOrderRepo {
	m := &mockOrderRepo{orders: make(map[primitive.ObjectID]*domain.Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockOrderRepo) Insert(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	m.orders[order.ID] = order
	return order, nil
}

func (m *mockOrderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return order, nil
}

func (m *mockOrderRepo) Save(ctx context.Context, order *domain.Order) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saveCalls++
	m.lastSaved = order
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) RequestCancellation(ctx context.Context, orderID, requestID primitive.ObjectID) (bool, error) {
	order, ok := m.orders[orderID]
	if !ok || order.Status != domain.OrderStatusConfirmed || order.HasCancelRequest {
		return false, nil
	}
	order.HasCancelRequest = true
	order.CancelRequestID = &requestID
	return true, nil
}

func (m *mockOrderRepo) List(ctx context.Context, filter repository.OrderListFilter) ([]domain.Order, int64, error) {
	m.lastFilter = filter
	return m.listOrders, m.listTotal, nil
}

func (m *mockOrderRepo) StatusCounts(ctx context.Context, userID primitive.ObjectID) (domain.OrderStats, error) {
	return m.stats, nil
}

func (m *mockOrderRepo) FindIDsByCode(ctx context.Context, search string) ([]primitive.ObjectID, error) {
	return m.codeMatches, nil
}

// mockCancelRepo is an in-memory CancelRequestRepository.
type mockCancelRepo struct {
	requests map[primitive.ObjectID]*domain.CancelRequest

	insertErr error
	saveErr   error

	lastFilter repository.CancelRequestListFilter
	listReqs   []domain.CancelRequest
	listTotal  int64
}

func newMockCancelRepo(requests ...*domain.CancelRequest) *mockCancelRepo {
	m := &mockCancelRepo{requests: make(map[primitive.ObjectID]*domain.CancelRequest)}
	for _, r := range requests {
		m.requests[r.ID] = r
	}
	return m
}

func (m *mockCancelRepo) Insert(ctx context.Context, req *domain.CancelRequest) (*domain.CancelRequest, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	m.requests[req.ID] = req
	return req, nil
}

func (m *mockCancelRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.CancelRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return req, nil
}

func (m *mockCancelRepo) Save(ctx context.Context, req *domain.CancelRequest) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.requests[req.ID] = req
	return nil
}

func (m *mockCancelRepo) List(ctx context.Context, filter repository.CancelRequestListFilter) ([]domain.CancelRequest, int64, error) {
	m.lastFilter = filter
	return m.listReqs, m.listTotal, nil
}

// mockCartRepo holds a single user's cart.
type mockCartRepo struct {
	cart      *domain.Cart
	findErr   error
	saveErr   error
	saveCalls int
}

func (m *mockCartRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.cart == nil {
		return nil, repository.ErrNotFound
	}
	return m.cart, nil
}

func (m *mockCartRepo) Save(ctx context.Context, cart *domain.Cart) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.cart = cart
	return nil
}

// stockCall records one inventory mutation for assertions.
type stockCall struct {
	variant  primitive.ObjectID
	size     primitive.ObjectID
	quantity int
}

// mockInventoryRepo is an in-memory InventoryRepository that applies
// deductions and restorations to its variants.
type mockInventoryRepo struct {
	variants map[primitive.ObjectID]*domain.Variant

	deductErr  error
	restoreErr error

	deductCalls  []stockCall
	restoreCalls []stockCall
}

func newMockInventoryRepo(variants ...*domain.Variant) *mockInventoryRepo {
	m := &mockInventoryRepo{variants: make(map[primitive.ObjectID]*domain.Variant)}
	for _, v := range variants {
		m.variants[v.ID] = v
	}
	return m
}

func (m *mockInventoryRepo) FindVariant(ctx context.Context, id primitive.ObjectID) (*domain.Variant, error) {
	v, ok := m.variants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return v, nil
}

func (m *mockInventoryRepo) DeductStock(ctx context.Context, variantID, sizeID primitive.ObjectID, quantity int) error {
	if m.deductErr != nil {
		return m.deductErr
	}
	m.deductCalls = append(m.deductCalls, stockCall{variantID, sizeID, quantity})
	if v, ok := m.variants[variantID]; ok {
		for i := range v.Sizes {
			if v.Sizes[i].Size == sizeID {
				v.Sizes[i].Quantity -= quantity
				v.Sizes[i].IsSizeAvailable = v.Sizes[i].Quantity > 0
			}
		}
	}
	return nil
}

func (m *mockInventoryRepo) RestoreStock(ctx context.Context, variantID, sizeID primitive.ObjectID, quantity int) error {
	if m.restoreErr != nil {
		return m.restoreErr
	}
	m.restoreCalls = append(m.restoreCalls, stockCall{variantID, sizeID, quantity})
	if v, ok := m.variants[variantID]; ok {
		for i := range v.Sizes {
			if v.Sizes[i].Size == sizeID {
				v.Sizes[i].Quantity += quantity
				v.Sizes[i].IsSizeAvailable = v.Sizes[i].Quantity > 0
			}
		}
	}
	return nil
}

// mockCouponRepo holds one coupon and tracks reservation traffic.
type mockCouponRepo struct {
	coupon *domain.Coupon

	reserveErr error
	findErr    error

	reserveCalls int
	releaseCalls int
}

func (m *mockCouponRepo) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.coupon == nil {
		return nil, repository.ErrNotFound
	}
	return m.coupon, nil
}

func (m *mockCouponRepo) Reserve(ctx context.Context, code string, userID primitive.ObjectID, now time.Time) (*domain.Coupon, error) {
	m.reserveCalls++
	if m.reserveErr != nil {
		return nil, m.reserveErr
	}
	if m.coupon == nil {
		return nil, repository.ErrCouponNotEligible
	}
	m.coupon.CurrentUses++
	return m.coupon, nil
}

func (m *mockCouponRepo) Release(ctx context.Context, id primitive.ObjectID) error {
	m.releaseCalls++
	if m.coupon != nil && m.coupon.CurrentUses > 0 {
		m.coupon.CurrentUses--
	}
	return nil
}

// mockUserRepo holds one user and canned search results.
type mockUserRepo struct {
	user          *domain.User
	searchResults []primitive.ObjectID
	searchCalls   int
}

func (m *mockUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, repository.ErrNotFound
	}
	return m.user, nil
}

func (m *mockUserRepo) FindAddress(ctx context.Context, userID, addressID primitive.ObjectID) (*domain.Address, error) {
	if m.user == nil || m.user.ID != userID {
		return nil, repository.ErrNotFound
	}
	for _, addr := range m.user.Addresses {
		if addr.ID == addressID {
			return &addr, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) SearchIDs(ctx context.Context, term string) ([]primitive.ObjectID, error) {
	m.searchCalls++
	return m.searchResults, nil
}

// mockPublisher records emitted events.
type mockPublisher struct {
	created       []*domain.Order
	statusChanged []*domain.Order
	cancelled     []*domain.Order
}

func (m *mockPublisher) OrderCreated(ctx context.Context, order *domain.Order) {
	m.created = append(m.created, order)
}

func (m *mockPublisher) OrderStatusChanged(ctx context.Context, order *domain.Order, previous domain.OrderStatus) {
	m.statusChanged = append(m.statusChanged, order)
}

func (m *mockPublisher) OrderCancelled(ctx context.Context, order *domain.Order, reason string) {
	m.cancelled = append(m.cancelled, order)
}

// ============================================================================
// Test Fixtures
// ============================================================================

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type testDeps struct {
	orders    *mockOrderRepo
	cancels   *mockCancelRepo
	carts     *mockCartRepo
	inventory *mockInventoryRepo
	coupons   *mockCouponRepo
	users     *mockUserRepo
	events    *mockPublisher
}

func newTestService(deps *testDeps) *orderService {
	if deps.orders == nil {
		deps.orders = newMockOrderRepo()
	}
	if deps.cancels == nil {
		deps.cancels = newMockCancelRepo()
	}
	if deps.carts == nil {
		deps.carts = &mockCartRepo{}
	}
	if deps.inventory == nil {
		deps.inventory = newMockInventoryRepo()
	}
	if deps.coupons == nil {
		deps.coupons = &mockCouponRepo{}
	}
	if deps.users == nil {
		deps.users = &mockUserRepo{}
	}
	if deps.events == nil {
		deps.events = &mockPublisher{}
	}

	cfg := internal.CheckoutConfig{
		ShippingFee:               30000,
		FreeShippingThreshold:     1000000,
		CancelReversalWindowHours: 24,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewOrderService(
		deps.orders, deps.cancels, deps.carts, deps.inventory,
		deps.coupons, deps.users, deps.events, nil, logger, cfg,
	).(*orderService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func makeTestUser() *domain.User {
	return &domain.User{
		ID:    primitive.NewObjectID(),
		Name:  "Nguyen Van A",
		Email: "a@example.com",
		Phone: "0901234567",
		Addresses: []domain.Address{{
			ID:            primitive.NewObjectID(),
			FullName:      "Nguyen Van A",
			Phone:         "0901234567",
			Province:      "Ho Chi Minh",
			District:      "District 1",
			Ward:          "Ben Nghe",
			AddressDetail: "12 Le Loi",
		}},
	}
}

func makeTestVariant(sizeID primitive.ObjectID, quantity int) *domain.Variant {
	return &domain.Variant{
		ID:      primitive.NewObjectID(),
		Product: primitive.NewObjectID(),
		Sizes: []domain.SizeStock{{
			Size:            sizeID,
			Quantity:        quantity,
			IsSizeAvailable: quantity > 0,
		}},
	}
}

func makeTestCart(userID primitive.ObjectID, items ...domain.CartItem) *domain.Cart {
	cart := &domain.Cart{
		ID:        primitive.NewObjectID(),
		User:      userID,
		CartItems: items,
	}
	for _, item := range items {
		cart.TotalItems += item.Quantity
		cart.SubTotal += item.Price * int64(item.Quantity)
	}
	return cart
}

func makeTestOrder(userID primitive.ObjectID, status domain.OrderStatus, method domain.PaymentMethod) *domain.Order {
	created := testNow.Add(-2 * time.Hour)
	order := &domain.Order{
		ID:   primitive.NewObjectID(),
		Code: "ORD-20250615-TEST01",
		User: userID,
		OrderItems: []domain.OrderItem{{
			Variant:     primitive.NewObjectID(),
			Size:        primitive.NewObjectID(),
			ProductName: "Air Runner",
			Quantity:    2,
			Price:       500000,
		}},
		SubTotal:                      1000000,
		ShippingFee:                   0,
		TotalAfterDiscountAndShipping: 1000000,
		Status:                        status,
		StatusHistory: []domain.StatusHistoryEntry{{
			Status:    domain.OrderStatusPending,
			Note:      "Order placed",
			UpdatedAt: created,
		}},
		Payment: domain.PaymentInfo{
			Method:        method,
			PaymentStatus: domain.PaymentStatusPending,
		},
		InventoryDeducted: method == domain.PaymentMethodCOD,
		CreatedAt:         created,
		UpdatedAt:         created,
	}
	if status != domain.OrderStatusPending {
		order.StatusHistory = append(order.StatusHistory, domain.StatusHistoryEntry{
			Status:    status,
			UpdatedAt: created.Add(30 * time.Minute),
		})
	}
	return order
}
