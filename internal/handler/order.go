package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/stridewear/api/internal/domain"
	"github.com/stridewear/api/internal/middleware"
	"github.com/stridewear/api/internal/service"
)

// OrderHandler serves the customer-facing order endpoints.
type OrderHandler struct {
	svc service.OrderService
}

func NewOrderHandler(svc service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/orders")
	g.Use(middleware.RequireUser())

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/cancel-requests", h.listCancelRequests)
	g.GET("/:id", h.detail)
	g.POST("/:id/cancel", h.cancel)
}

type createOrderRequest struct {
	AddressID     string `json:"addressId" validate:"required"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=COD VNPAY"`
	CouponCode    string `json:"couponCode"`
	Note          string `json:"note"`
}

func (h *OrderHandler) create(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return invalidParam(c, "request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	addressID, err := primitive.ObjectIDFromHex(req.AddressID)
	if err != nil {
		return invalidParam(c, "address id")
	}

	order, err := h.svc.CreateOrder(c.Request().Context(), service.CreateOrderInput{
		UserID:        middleware.UserID(c),
		AddressID:     addressID,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		CouponCode:    req.CouponCode,
		Note:          req.Note,
	})
	if err != nil {
		return Error(c, err)
	}
	return Created(c, "Order placed", order)
}

func (h *OrderHandler) list(c echo.Context) error {
	page, err := h.svc.GetUserOrders(c.Request().Context(), middleware.UserID(c), orderListQuery(c))
	if err != nil {
		return Error(c, err)
	}
	return OK(c, "", page)
}

func (h *OrderHandler) detail(c echo.Context) error {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return invalidParam(c, "order id")
	}

	order, err := h.svc.GetOrderByID(c.Request().Context(), middleware.UserID(c), orderID)
	if err != nil {
		return Error(c, err)
	}
	return OK(c, "", order)
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *OrderHandler) cancel(c echo.Context) error {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return invalidParam(c, "order id")
	}
	var req cancelOrderRequest
	if err := c.Bind(&req); err != nil {
		return invalidParam(c, "request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.svc.CancelOrder(c.Request().Context(), middleware.UserID(c), orderID, req.Reason)
	if err != nil {
		return Error(c, err)
	}
	return OK(c, res.Message, res)
}

func (h *OrderHandler) listCancelRequests(c echo.Context) error {
	page, err := h.svc.GetUserCancelRequests(c.Request().Context(), middleware.UserID(c), cancelListQuery(c))
	if err != nil {
		return Error(c, err)
	}
	return OK(c, "", page)
}

// orderListQuery reads the shared listing query parameters.
func orderListQuery(c echo.Context) service.OrderListQuery {
	return service.OrderListQuery{
		Status: domain.OrderStatus(c.QueryParam("status")),
		Search: c.QueryParam("search"),
		Page:   intQuery(c, "page"),
		Limit:  intQuery(c, "limit"),
	}
}

func cancelListQuery(c echo.Context) service.CancelRequestListQuery {
	return service.CancelRequestListQuery{
		Status: domain.CancelRequestStatus(c.QueryParam("status")),
		Search: c.QueryParam("search"),
		Page:   intQuery(c, "page"),
		Limit:  intQuery(c, "limit"),
	}
}

func intQuery(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}
