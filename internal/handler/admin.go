package handler

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/stridewear/api/internal/domain"
	"github.com/stridewear/api/internal/middleware"
	"github.com/stridewear/api/internal/service"
)

// AdminOrderHandler serves the back-office order endpoints.
type AdminOrderHandler struct {
	svc service.OrderService
}

func NewAdminOrderHandler(svc service.OrderService) *AdminOrderHandler {
	return &AdminOrderHandler{svc: svc}
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/admin")
	g.Use(middleware.RequireAdmin())

	g.GET("/orders", h.list)
	g.GET("/orders/:id", h.detail)
	g.PATCH("/orders/:id/status", h.updateStatus)
	g.GET("/cancel-requests", h.listCancelRequests)
	g.PATCH("/cancel-requests/:id", h.processCancelRequest)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page, err := h.svc.GetAllOrders(c.Request().Context(), orderListQuery(c))
	if err != nil {
		return Error(c, err)
	}
	return OK(c, "", page)
}

func (h *AdminOrderHandler) detail(c echo.Context) error {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return invalidParam(c, "order id")
	}

	order, err := h.svc.GetOrderDetail(c.Request().Context(), orderID)
	if err != nil {
		return Error(c, err)
	}
	return OK(c, "", order)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return invalidParam(c, "order id")
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return invalidParam(c, "request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.svc.UpdateOrderStatus(c.Request().Context(),
		middleware.AdminID(c), orderID, domain.OrderStatus(req.Status), req.Note)
	if err != nil {
		return Error(c, err)
	}
	return OK(c, "Order status updated", res)
}

func (h *AdminOrderHandler) listCancelRequests(c echo.Context) error {
	page, err := h.svc.GetCancelRequests(c.Request().Context(), cancelListQuery(c))
	if err != nil {
		return Error(c, err)
	}
	return OK(c, "", page)
}

type cancelDecisionRequest struct {
	Decision      string `json:"decision" validate:"required,oneof=approved rejected"`
	AdminResponse string `json:"adminResponse"`
}

func (h *AdminOrderHandler) processCancelRequest(c echo.Context) error {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return invalidParam(c, "cancel request id")
	}
	var req cancelDecisionRequest
	if err := c.Bind(&req); err != nil {
		return invalidParam(c, "request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.svc.ProcessCancelRequest(c.Request().Context(),
		middleware.AdminID(c), requestID, domain.CancelRequestStatus(req.Decision), req.AdminResponse)
	if err != nil {
		return Error(c, err)
	}
	return OK(c, res.Message, res)
}
