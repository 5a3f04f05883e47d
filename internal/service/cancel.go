package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/stridewear/api/internal/domain"
	"github.com/stridewear/api/internal/repository"
)

// CancelOrder files a cancellation for one of the user's own orders.
//
// Pending orders have not been acted on, so the request auto-approves and
// the order is cancelled on the spot. Confirmed orders may already be picked
// or packed; those get a pending request and the order is frozen until an
// admin decides.
func (s *orderService) CancelOrder(ctx context.Context, userID, orderID primitive.ObjectID, reason string) (*CancelOrderResult, error) {
	const op = "order.cancel"

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.Invalid(op, "cancellation reason is required")
	}

	order, err := s.findOrder(ctx, op, orderID)
	if err != nil {
		return nil, err
	}
	if order.User != userID {
		return nil, domain.Forbidden(op, "you do not have access to this order")
	}
	if !order.Status.Cancellable() {
		return nil, domain.Invalid(op, fmt.Sprintf("order in status %s can no longer be cancelled", order.Status))
	}
	if order.HasCancelRequest {
		return nil, domain.Invalid(op, "a cancellation request is already pending for this order")
	}

	if order.Status == domain.OrderStatusPending {
		return s.cancelImmediately(ctx, op, order, userID, reason)
	}
	return s.deferCancellation(ctx, op, order, userID, reason)
}

func (s *orderService) cancelImmediately(ctx context.Context, op string, order *domain.Order, userID primitive.ObjectID, reason string) (*CancelOrderResult, error) {
	now := s.now()

	req := &domain.CancelRequest{
		Order:         order.ID,
		User:          userID,
		Reason:        reason,
		Status:        domain.CancelRequestApproved,
		AdminResponse: "Order had not been confirmed yet; cancelled automatically",
		ResolvedAt:    &now,
		CreatedAt:     now,
	}
	req, err := s.cancels.Insert(ctx, req)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to record cancellation request")
	}

	order.CancelRequestID = &req.ID
	needRestore := s.applyCancellation(order, reason, &userID, now)

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, domain.Internal(err, op, "failed to cancel order")
	}
	if needRestore {
		s.restoreOrderStock(ctx, order)
	}

	if s.events != nil {
		s.events.OrderCancelled(ctx, order, reason)
	}
	if s.metrics != nil {
		s.metrics.OrdersCancelled.WithLabelValues("auto").Inc()
	}
	s.logger.Info("order cancelled",
		slog.String("code", order.Code),
		slog.String("user", userID.Hex()))

	return &CancelOrderResult{
		Message:       "Your order has been cancelled",
		AutoApproved:  true,
		CancelRequest: req,
		Order:         order,
	}, nil
}

func (s *orderService) deferCancellation(ctx context.Context, op string, order *domain.Order, userID primitive.ObjectID, reason string) (*CancelOrderResult, error) {
	req := &domain.CancelRequest{
		ID:        primitive.NewObjectID(),
		Order:     order.ID,
		User:      userID,
		Reason:    reason,
		Status:    domain.CancelRequestPending,
		CreatedAt: s.now(),
	}

	// Set the gate first. The conditional update loses against a concurrent
	// request, so two submissions cannot both freeze the order.
	ok, err := s.orders.RequestCancellation(ctx, order.ID, req.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to file cancellation request")
	}
	if !ok {
		return nil, domain.Invalid(op, "a cancellation request is already pending for this order")
	}

	if _, err := s.cancels.Insert(ctx, req); err != nil {
		// Roll the gate back. Leaving it set would freeze the order behind
		// a request that was never persisted.
		order.HasCancelRequest = false
		order.CancelRequestID = nil
		if saveErr := s.orders.Save(ctx, order); saveErr != nil {
			s.logger.Error("failed to clear cancel gate after insert failure",
				slog.String("code", order.Code),
				slog.String("error", saveErr.Error()))
		}
		return nil, domain.Internal(err, op, "failed to record cancellation request")
	}

	s.logger.Info("cancellation request filed",
		slog.String("code", order.Code),
		slog.String("user", userID.Hex()))

	return &CancelOrderResult{
		Message:       "Your cancellation request has been submitted and is awaiting review",
		AutoApproved:  false,
		CancelRequest: req,
	}, nil
}

// ProcessCancelRequest records an admin decision. Besides deciding pending
// requests, an admin may flip an earlier decision: a rejected request can
// still be approved while the order remains cancellable, and an approved
// one can be reversed within the reversal window, restoring the order to
// its last status before cancellation.
func (s *orderService) ProcessCancelRequest(ctx context.Context, adminID, requestID primitive.ObjectID, decision domain.CancelRequestStatus, adminResponse string) (*CancelDecisionResult, error) {
	const op = "cancel_request.process"

	if !domain.ValidCancelDecision(decision) {
		return nil, domain.Invalid(op, "decision must be approved or rejected")
	}

	req, err := s.cancels.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound(op, "cancel request", requestID.Hex())
		}
		return nil, domain.Internal(err, op, "failed to get cancel request")
	}
	if req.Status == decision {
		return nil, domain.Invalid(op, fmt.Sprintf("request has already been %s", decision))
	}

	order, err := s.findOrder(ctx, op, req.Order)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var (
		message     string
		reversed    bool
		needRestore bool
		cancelled   bool
	)

	switch {
	case req.Status == domain.CancelRequestApproved && decision == domain.CancelRequestRejected:
		// Reversing an approved cancellation.
		if order.Status != domain.OrderStatusCancelled || order.CancelRequestID == nil || *order.CancelRequestID != req.ID {
			return nil, domain.Invalid(op, "order state no longer matches this cancellation request")
		}
		basis := order.CancelledAt
		if basis == nil {
			basis = req.ResolvedAt
		}
		if basis == nil || now.Sub(*basis) > s.reversalWindow {
			return nil, domain.Invalid(op, fmt.Sprintf("the decision can no longer be reversed after %s", formatWindow(s.reversalWindow)))
		}

		restored := order.LastStatusBeforeCancellation()
		order.Status = restored
		order.CancelledAt = nil
		order.CancelReason = ""
		order.AppendHistory(domain.StatusHistoryEntry{
			Status:    restored,
			Note:      "Cancellation reversed by admin",
			UpdatedAt: now,
			UpdatedBy: &adminID,
		})
		// Stock restored during the cancellation is not taken back
		// automatically; inventory staff re-deduct when the order actually
		// moves again.
		reversed = true
		message = fmt.Sprintf("Cancellation reversed; order restored to %s", restored)

	case req.Status == domain.CancelRequestRejected && decision == domain.CancelRequestApproved:
		// Approving a previously rejected request.
		if !order.Status.Cancellable() {
			return nil, domain.Invalid(op, fmt.Sprintf("order in status %s can no longer be cancelled", order.Status))
		}
		order.CancelRequestID = &req.ID
		needRestore = s.applyCancellation(order, req.Reason, &adminID, now)
		cancelled = true
		reversed = true
		message = "Decision changed; the order has been cancelled"

	case decision == domain.CancelRequestApproved:
		if !order.Status.Cancellable() {
			return nil, domain.Invalid(op, fmt.Sprintf("order in status %s can no longer be cancelled", order.Status))
		}
		order.CancelRequestID = &req.ID
		needRestore = s.applyCancellation(order, req.Reason, &adminID, now)
		cancelled = true
		message = "Cancellation request approved; the order has been cancelled"

	default: // pending -> rejected
		message = "Cancellation request rejected; the order continues unchanged"
	}

	order.HasCancelRequest = false
	order.UpdatedAt = now
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, domain.Internal(err, op, "failed to save order")
	}
	if needRestore {
		s.restoreOrderStock(ctx, order)
	}

	req.Status = decision
	req.AdminResponse = adminResponse
	req.ProcessedBy = &adminID
	req.ResolvedAt = &now
	if err := s.cancels.Save(ctx, req); err != nil {
		return nil, domain.Internal(err, op, "failed to save cancel request")
	}

	if s.events != nil {
		if cancelled {
			s.events.OrderCancelled(ctx, order, req.Reason)
		} else if reversed {
			s.events.OrderStatusChanged(ctx, order, domain.OrderStatusCancelled)
		}
	}
	if s.metrics != nil {
		s.metrics.CancelDecisions.WithLabelValues(string(decision)).Inc()
		if cancelled {
			s.metrics.OrdersCancelled.WithLabelValues("admin").Inc()
		}
	}

	s.logger.Info("cancel request processed",
		slog.String("request", req.ID.Hex()),
		slog.String("order", order.Code),
		slog.String("decision", string(decision)),
		slog.String("admin", adminID.Hex()))

	return &CancelDecisionResult{
		Message:       message,
		Reversed:      reversed,
		CancelRequest: req,
		Order:         order,
	}, nil
}

// applyCancellation mutates the aggregate into its cancelled shape and
// reports whether stock needs restoring afterwards. The InventoryDeducted
// flag flips in the same save as the status change, so the restoration runs
// at most once no matter how the cancellation was triggered.
func (s *orderService) applyCancellation(order *domain.Order, reason string, actor *primitive.ObjectID, now time.Time) bool {
	order.Status = domain.OrderStatusCancelled
	order.CancelledAt = &now
	order.CancelReason = reason
	order.HasCancelRequest = false
	order.UpdatedAt = now
	order.AppendHistory(domain.StatusHistoryEntry{
		Status:    domain.OrderStatusCancelled,
		Note:      "Cancelled: " + reason,
		UpdatedAt: now,
		UpdatedBy: actor,
	})

	if !order.InventoryDeducted {
		return false
	}
	order.InventoryDeducted = false
	return true
}

// restoreOrderStock puts every order line back into inventory. The order is
// already saved as cancelled; a failed increment here is an inventory
// bookkeeping problem, not grounds to resurrect the order, so failures are
// logged and counted.
func (s *orderService) restoreOrderStock(ctx context.Context, order *domain.Order) {
	for _, item := range order.OrderItems {
		if err := s.inventory.RestoreStock(ctx, item.Variant, item.Size, item.Quantity); err != nil {
			s.logger.Error("failed to restore stock",
				slog.String("order", order.Code),
				slog.String("variant", item.Variant.Hex()),
				slog.String("error", err.Error()))
			if s.metrics != nil {
				s.metrics.StockRestoreFailures.Inc()
			}
		}
	}
}

func formatWindow(d time.Duration) string {
	if h := int(d.Hours()); h%24 == 0 && h >= 24 {
		days := h / 24
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	return fmt.Sprintf("%d hours", int(d.Hours()))
}
