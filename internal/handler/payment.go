package handler

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/stridewear/api/internal/service"
)

// PaymentHandler receives payment confirmations relayed by the gateway
// integration service.
type PaymentHandler struct {
	svc service.OrderService
}

func NewPaymentHandler(svc service.OrderService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/payments/vnpay/:orderId/confirm", h.confirmVNPay)
}

type vnpayConfirmRequest struct {
	TransactionNo string `json:"transactionNo" validate:"required"`
}

func (h *PaymentHandler) confirmVNPay(c echo.Context) error {
	orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
	if err != nil {
		return invalidParam(c, "order id")
	}
	var req vnpayConfirmRequest
	if err := c.Bind(&req); err != nil {
		return invalidParam(c, "request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	order, err := h.svc.MarkOrderPaid(c.Request().Context(), orderID, req.TransactionNo)
	if err != nil {
		return Error(c, err)
	}
	return OK(c, "Payment recorded", order)
}
