package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/stridewear/api/internal/domain"
)

// UpdateOrderStatus moves an order one step forward through the lifecycle.
// Cancellation is not reachable here; it belongs to the cancel-request
// workflow.
func (s *orderService) UpdateOrderStatus(ctx context.Context, adminID, orderID primitive.ObjectID, target domain.OrderStatus, note string) (*StatusUpdateResult, error) {
	const op = "order.update_status"

	if !domain.ValidOrderStatus(target) {
		return nil, domain.Invalid(op, fmt.Sprintf("unknown order status %q", target))
	}

	order, err := s.findOrder(ctx, op, orderID)
	if err != nil {
		return nil, err
	}

	if target == order.Status {
		return nil, domain.Invalid(op, fmt.Sprintf("order is already %s", target))
	}
	if target == domain.OrderStatusCancelled {
		return nil, domain.Invalid(op, "orders are cancelled through the cancellation workflow, not a status update")
	}
	if order.HasCancelRequest {
		return nil, domain.Invalid(op, "order has a pending cancellation request; resolve it before changing status")
	}
	if !domain.CanTransition(order.Status, target) {
		return nil, domain.Invalid(op, fmt.Sprintf("cannot move order from %s to %s", order.Status, target))
	}
	if order.Payment.Method == domain.PaymentMethodVNPay && order.Payment.PaymentStatus != domain.PaymentStatusPaid {
		return nil, domain.Invalid(op, "VNPAY order must be paid before it can progress")
	}

	now := s.now()
	previous := order.Status
	order.Status = target
	order.UpdatedAt = now

	switch target {
	case domain.OrderStatusConfirmed:
		order.ConfirmedAt = &now
	case domain.OrderStatusShipping:
		order.ShippingAt = &now
	case domain.OrderStatusDelivered:
		order.DeliveredAt = &now
		// COD settles on handover.
		if order.Payment.Method == domain.PaymentMethodCOD && order.Payment.PaymentStatus != domain.PaymentStatusPaid {
			order.Payment.PaymentStatus = domain.PaymentStatusPaid
			order.Payment.PaidAt = &now
		}
	}

	order.AppendHistory(domain.StatusHistoryEntry{
		Status:    target,
		Note:      note,
		UpdatedAt: now,
		UpdatedBy: &adminID,
	})

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, domain.Internal(err, op, "failed to save order")
	}

	if s.events != nil {
		s.events.OrderStatusChanged(ctx, order, previous)
	}
	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(previous), string(target)).Inc()
	}

	s.logger.Info("order status updated",
		slog.String("code", order.Code),
		slog.String("from", string(previous)),
		slog.String("to", string(target)),
		slog.String("admin", adminID.Hex()))

	return &StatusUpdateResult{
		OrderID:        order.ID,
		Code:           order.Code,
		PreviousStatus: previous,
		CurrentStatus:  target,
		UpdatedAt:      now,
	}, nil
}

// MarkOrderPaid records a confirmed VNPAY payment and performs the deferred
// stock deduction. The InventoryDeducted flag guarantees the deduction runs
// at most once even if the gateway retries the confirmation.
func (s *orderService) MarkOrderPaid(ctx context.Context, orderID primitive.ObjectID, transactionNo string) (*domain.Order, error) {
	const op = "order.mark_paid"

	order, err := s.findOrder(ctx, op, orderID)
	if err != nil {
		return nil, err
	}

	if order.Payment.Method != domain.PaymentMethodVNPay {
		return nil, domain.Invalid(op, "only VNPAY orders receive payment confirmations")
	}
	if order.Payment.PaymentStatus == domain.PaymentStatusPaid {
		return nil, domain.Invalid(op, "order is already paid")
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, domain.Invalid(op, "order has been cancelled")
	}

	now := s.now()
	order.Payment.PaymentStatus = domain.PaymentStatusPaid
	order.Payment.PaidAt = &now
	order.Payment.TransactionNo = transactionNo
	order.UpdatedAt = now

	deduct := !order.InventoryDeducted
	order.InventoryDeducted = true

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, domain.Internal(err, op, "failed to save order")
	}

	if deduct {
		s.deductOrderStock(ctx, order, "payment")
	}

	s.logger.Info("order marked paid",
		slog.String("code", order.Code),
		slog.String("transaction", transactionNo))

	return order, nil
}
