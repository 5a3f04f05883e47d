package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/stridewear/api/internal/domain"
	"github.com/stridewear/api/internal/middleware"
	"github.com/stridewear/api/internal/service"
)

// mockOrderService implements service.OrderService with overridable funcs.
type mockOrderService struct {
	createFn        func(ctx context.Context, in service.CreateOrderInput) (*domain.Order, error)
	cancelFn        func(ctx context.Context, userID, orderID primitive.ObjectID, reason string) (*service.CancelOrderResult, error)
	updateStatusFn  func(ctx context.Context, adminID, orderID primitive.ObjectID, target domain.OrderStatus, note string) (*service.StatusUpdateResult, error)
	processCancelFn func(ctx context.Context, adminID, requestID primitive.ObjectID, decision domain.CancelRequestStatus, resp string) (*service.CancelDecisionResult, error)
	markPaidFn      func(ctx context.Context, orderID primitive.ObjectID, txn string) (*domain.Order, error)
}

var errNotStubbed = errors.New("not stubbed")

func (m *mockOrderService) CreateOrder(ctx context.Context, in service.CreateOrderInput) (*domain.Order, error) {
	if m.createFn == nil {
		return nil, errNotStubbed
	}
	return m.createFn(ctx, in)
}

func (m *mockOrderService) GetUserOrders(ctx context.Context, userID primitive.ObjectID, q service.OrderListQuery) (*service.OrderPage, error) {
	return &service.OrderPage{Orders: []domain.Order{}, Pagination: domain.NewPagination(1, 20, 0)}, nil
}

func (m *mockOrderService) GetOrderByID(ctx context.Context, userID, orderID primitive.ObjectID) (*domain.Order, error) {
	return nil, domain.NotFound("order.get", "order", orderID.Hex())
}

func (m *mockOrderService) CancelOrder(ctx context.Context, userID, orderID primitive.ObjectID, reason string) (*service.CancelOrderResult, error) {
	if m.cancelFn == nil {
		return nil, errNotStubbed
	}
	return m.cancelFn(ctx, userID, orderID, reason)
}

func (m *mockOrderService) GetUserCancelRequests(ctx context.Context, userID primitive.ObjectID, q service.CancelRequestListQuery) (*service.CancelRequestPage, error) {
	return &service.CancelRequestPage{Requests: []domain.CancelRequest{}, Pagination: domain.NewPagination(1, 20, 0)}, nil
}

func (m *mockOrderService) GetAllOrders(ctx context.Context, q service.OrderListQuery) (*service.OrderPage, error) {
	return &service.OrderPage{Orders: []domain.Order{}, Pagination: domain.NewPagination(1, 20, 0)}, nil
}

func (m *mockOrderService) GetOrderDetail(ctx context.Context, orderID primitive.ObjectID) (*domain.Order, error) {
	return nil, domain.NotFound("order.detail", "order", orderID.Hex())
}

func (m *mockOrderService) UpdateOrderStatus(ctx context.Context, adminID, orderID primitive.ObjectID, target domain.OrderStatus, note string) (*service.StatusUpdateResult, error) {
	if m.updateStatusFn == nil {
		return nil, errNotStubbed
	}
	return m.updateStatusFn(ctx, adminID, orderID, target, note)
}

func (m *mockOrderService) GetCancelRequests(ctx context.Context, q service.CancelRequestListQuery) (*service.CancelRequestPage, error) {
	return &service.CancelRequestPage{Requests: []domain.CancelRequest{}, Pagination: domain.NewPagination(1, 20, 0)}, nil
}

func (m *mockOrderService) ProcessCancelRequest(ctx context.Context, adminID, requestID primitive.ObjectID, decision domain.CancelRequestStatus, resp string) (*service.CancelDecisionResult, error) {
	if m.processCancelFn == nil {
		return nil, errNotStubbed
	}
	return m.processCancelFn(ctx, adminID, requestID, decision, resp)
}

func (m *mockOrderService) MarkOrderPaid(ctx context.Context, orderID primitive.ObjectID, txn string) (*domain.Order, error) {
	if m.markPaidFn == nil {
		return nil, errNotStubbed
	}
	return m.markPaidFn(ctx, orderID, txn)
}

func newTestRouter(svc service.OrderService) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewRouter(svc, nil, nil, logger)
	return httptest.NewServer(e)
}

func doJSON(t *testing.T, method, url, body string, headers map[string]string) (*http.Response, Response) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(echoContentType, "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var envelope Response
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &envelope)
	}
	return res, envelope
}

const echoContentType = "Content-Type"

func TestCreateOrderEndpoint(t *testing.T) {
	userID := primitive.NewObjectID()
	svc := &mockOrderService{
		createFn: func(ctx context.Context, in service.CreateOrderInput) (*domain.Order, error) {
			return &domain.Order{
				ID:     primitive.NewObjectID(),
				Code:   "ORD-20250615-ABCDEF",
				User:   in.UserID,
				Status: domain.OrderStatusPending,
			}, nil
		},
	}
	srv := newTestRouter(svc)
	defer srv.Close()

	addressID := primitive.NewObjectID().Hex()
	body := `{"addressId":"` + addressID + `","paymentMethod":"COD"}`

	res, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/orders", body,
		map[string]string{middleware.UserIDHeader: userID.Hex()})

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.True(t, envelope.Success)
	assert.Equal(t, "Order placed", envelope.Message)
	assert.NotNil(t, envelope.Data)
}

func TestCreateOrderEndpoint_RequiresAuth(t *testing.T) {
	srv := newTestRouter(&mockOrderService{})
	defer srv.Close()

	res, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/orders", `{}`, nil)

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.False(t, envelope.Success)
}

func TestCreateOrderEndpoint_RejectsBadPaymentMethod(t *testing.T) {
	srv := newTestRouter(&mockOrderService{})
	defer srv.Close()

	body := `{"addressId":"` + primitive.NewObjectID().Hex() + `","paymentMethod":"PAYPAL"}`
	res, _ := doJSON(t, http.MethodPost, srv.URL+"/api/orders", body,
		map[string]string{middleware.UserIDHeader: primitive.NewObjectID().Hex()})

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestCreateOrderEndpoint_RejectsBadAddressID(t *testing.T) {
	srv := newTestRouter(&mockOrderService{})
	defer srv.Close()

	res, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/orders",
		`{"addressId":"not-hex","paymentMethod":"COD"}`,
		map[string]string{middleware.UserIDHeader: primitive.NewObjectID().Hex()})

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.False(t, envelope.Success)
}

func TestOrderDetailEndpoint_NotFoundMapsTo404(t *testing.T) {
	srv := newTestRouter(&mockOrderService{})
	defer srv.Close()

	res, envelope := doJSON(t, http.MethodGet,
		srv.URL+"/api/orders/"+primitive.NewObjectID().Hex(), "",
		map[string]string{middleware.UserIDHeader: primitive.NewObjectID().Hex()})

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.False(t, envelope.Success)
}

func TestCancelOrderEndpoint_RequiresReason(t *testing.T) {
	srv := newTestRouter(&mockOrderService{})
	defer srv.Close()

	res, envelope := doJSON(t, http.MethodPost,
		srv.URL+"/api/orders/"+primitive.NewObjectID().Hex()+"/cancel", `{}`,
		map[string]string{middleware.UserIDHeader: primitive.NewObjectID().Hex()})

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	// Validation failures use the same envelope as every other error and
	// name the offending field without leaking struct internals.
	assert.False(t, envelope.Success)
	assert.Contains(t, envelope.Message, "Reason")
	assert.NotContains(t, envelope.Message, "Key:")
	assert.NotContains(t, envelope.Message, "Error:Field")
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	srv := newTestRouter(&mockOrderService{})
	defer srv.Close()

	res, envelope := doJSON(t, http.MethodGet, srv.URL+"/api/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.False(t, envelope.Success)
	assert.NotEmpty(t, envelope.Message)
}

func TestAdminUpdateStatusEndpoint(t *testing.T) {
	var gotTarget domain.OrderStatus
	svc := &mockOrderService{
		updateStatusFn: func(ctx context.Context, adminID, orderID primitive.ObjectID, target domain.OrderStatus, note string) (*service.StatusUpdateResult, error) {
			gotTarget = target
			return &service.StatusUpdateResult{
				OrderID:        orderID,
				PreviousStatus: domain.OrderStatusPending,
				CurrentStatus:  target,
			}, nil
		},
	}
	srv := newTestRouter(svc)
	defer srv.Close()

	res, envelope := doJSON(t, http.MethodPatch,
		srv.URL+"/api/admin/orders/"+primitive.NewObjectID().Hex()+"/status",
		`{"status":"confirmed","note":"packing"}`,
		map[string]string{middleware.AdminIDHeader: primitive.NewObjectID().Hex()})

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, envelope.Success)
	assert.Equal(t, domain.OrderStatusConfirmed, gotTarget)
}

func TestAdminEndpoints_RejectUserHeader(t *testing.T) {
	srv := newTestRouter(&mockOrderService{})
	defer srv.Close()

	// A customer identity header does not grant admin access.
	res, _ := doJSON(t, http.MethodGet, srv.URL+"/api/admin/orders", "",
		map[string]string{middleware.UserIDHeader: primitive.NewObjectID().Hex()})

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestProcessCancelRequestEndpoint_RejectsUnknownDecision(t *testing.T) {
	srv := newTestRouter(&mockOrderService{})
	defer srv.Close()

	res, _ := doJSON(t, http.MethodPatch,
		srv.URL+"/api/admin/cancel-requests/"+primitive.NewObjectID().Hex(),
		`{"decision":"maybe"}`,
		map[string]string{middleware.AdminIDHeader: primitive.NewObjectID().Hex()})

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestVNPayConfirmEndpoint(t *testing.T) {
	svc := &mockOrderService{
		markPaidFn: func(ctx context.Context, orderID primitive.ObjectID, txn string) (*domain.Order, error) {
			return &domain.Order{ID: orderID, Payment: domain.PaymentInfo{
				Method:        domain.PaymentMethodVNPay,
				PaymentStatus: domain.PaymentStatusPaid,
				TransactionNo: txn,
			}}, nil
		},
	}
	srv := newTestRouter(svc)
	defer srv.Close()

	res, envelope := doJSON(t, http.MethodPost,
		srv.URL+"/api/payments/vnpay/"+primitive.NewObjectID().Hex()+"/confirm",
		`{"transactionNo":"VNP42"}`, nil)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, envelope.Success)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestRouter(&mockOrderService{})
	defer srv.Close()

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
