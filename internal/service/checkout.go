package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/stridewear/api/internal/domain"
	"github.com/stridewear/api/internal/repository"
)

// CreateOrderInput carries everything checkout needs beyond what is read
// from the cart.
type CreateOrderInput struct {
	UserID        primitive.ObjectID
	AddressID     primitive.ObjectID
	PaymentMethod domain.PaymentMethod
	CouponCode    string
	Note          string
}

// CreateOrder converts the user's selected cart lines into an order.
//
// Stock for COD orders is deducted immediately after the order is persisted;
// VNPAY orders defer deduction until the payment confirmation arrives. The
// coupon use is reserved up front and released again if the order fails to
// persist.
func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	const op = "order.create"

	if !domain.ValidPaymentMethod(in.PaymentMethod) {
		return nil, domain.Invalid(op, "payment method must be COD or VNPAY")
	}

	address, err := s.users.FindAddress(ctx, in.UserID, in.AddressID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound(op, "shipping address", in.AddressID.Hex())
		}
		return nil, domain.Internal(err, op, "failed to get shipping address")
	}

	cart, err := s.carts.FindByUser(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Invalid(op, "your cart is empty")
		}
		return nil, domain.Internal(err, op, "failed to get cart")
	}

	items, subTotal, err := s.validateCartLines(ctx, op, cart)
	if err != nil {
		return nil, err
	}

	now := s.now()

	var coupon *domain.Coupon
	var discount int64
	if code := strings.TrimSpace(in.CouponCode); code != "" {
		coupon, err = s.reserveCoupon(ctx, op, code, in.UserID, subTotal, now)
		if err != nil {
			return nil, err
		}
		discount = coupon.Discount(subTotal)
		if s.metrics != nil {
			s.metrics.CouponsReserved.Inc()
		}
	}

	shippingFee := s.shippingFee
	if subTotal >= s.freeShippingThreshold {
		shippingFee = 0
	}

	order := &domain.Order{
		Code:            generateOrderCode(now),
		User:            in.UserID,
		OrderItems:      items,
		ShippingAddress: address.ToShipping(),
		Note:            in.Note,

		SubTotal:                      subTotal,
		Discount:                      discount,
		ShippingFee:                   shippingFee,
		TotalAfterDiscountAndShipping: subTotal - discount + shippingFee,

		Status: domain.OrderStatusPending,
		StatusHistory: []domain.StatusHistoryEntry{{
			Status:    domain.OrderStatusPending,
			Note:      "Order placed",
			UpdatedAt: now,
			UpdatedBy: &in.UserID,
		}},
		Payment: domain.PaymentInfo{
			Method:        in.PaymentMethod,
			PaymentStatus: domain.PaymentStatusPending,
		},

		// COD stock is taken right away; VNPAY waits for payment.
		InventoryDeducted: in.PaymentMethod == domain.PaymentMethodCOD,
	}
	if coupon != nil {
		order.Coupon = &coupon.ID
		detail := coupon.Snapshot()
		order.CouponDetail = &detail
	}

	order, err = s.orders.Insert(ctx, order)
	if err != nil {
		if coupon != nil {
			if relErr := s.coupons.Release(ctx, coupon.ID); relErr != nil {
				s.logger.Error("failed to release coupon after failed checkout",
					slog.String("coupon", coupon.Code),
					slog.String("error", relErr.Error()))
			} else if s.metrics != nil {
				s.metrics.CouponsReleased.Inc()
			}
		}
		return nil, domain.Internal(err, op, "failed to create order")
	}

	if in.PaymentMethod == domain.PaymentMethodCOD {
		s.deductOrderStock(ctx, order, "checkout")
	}

	s.consumeCartLines(ctx, cart)

	if s.events != nil {
		s.events.OrderCreated(ctx, order)
	}
	if s.metrics != nil {
		method := string(in.PaymentMethod)
		s.metrics.OrdersCreated.WithLabelValues(method).Inc()
		s.metrics.OrderValue.WithLabelValues(method).Observe(float64(order.TotalAfterDiscountAndShipping))
		s.metrics.OrderItemCount.Observe(float64(len(order.OrderItems)))
	}

	s.logger.Info("order created",
		slog.String("code", order.Code),
		slog.String("user", order.User.Hex()),
		slog.String("payment_method", string(in.PaymentMethod)),
		slog.Int64("total", order.TotalAfterDiscountAndShipping))

	return order, nil
}

// validateCartLines checks every selected line against current inventory and
// returns the order line snapshots plus the subtotal. All failing lines are
// reported together so the user can fix their cart in one pass.
func (s *orderService) validateCartLines(ctx context.Context, op string, cart *domain.Cart) ([]domain.OrderItem, int64, error) {
	selected := cart.SelectedItems()
	if len(selected) == 0 {
		return nil, 0, domain.Invalid(op, "no items selected for checkout")
	}

	var items []domain.OrderItem
	var subTotal int64
	var problems []string

	for i := range cart.CartItems {
		line := &cart.CartItems[i]
		if !line.IsSelected {
			continue
		}

		variant, err := s.inventory.FindVariant(ctx, line.Variant)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				line.IsAvailable = false
				problems = append(problems, fmt.Sprintf("%s is no longer available", line.ProductName))
				continue
			}
			return nil, 0, domain.Internal(err, op, "failed to check inventory")
		}

		stock, ok := variant.SizeStock(line.Size)
		switch {
		case !ok:
			line.IsAvailable = false
			problems = append(problems, fmt.Sprintf("%s is not offered in the selected size", line.ProductName))
		case !stock.IsSizeAvailable:
			line.IsAvailable = false
			problems = append(problems, fmt.Sprintf("%s is out of stock in the selected size", line.ProductName))
		case stock.Quantity < line.Quantity:
			line.IsAvailable = false
			problems = append(problems, fmt.Sprintf("%s has only %d left in the selected size", line.ProductName, stock.Quantity))
		default:
			line.IsAvailable = true
			items = append(items, domain.OrderItem{
				Variant:     line.Variant,
				Size:        line.Size,
				ProductName: line.ProductName,
				Quantity:    line.Quantity,
				Price:       line.Price,
				Image:       line.Image,
			})
			subTotal += line.Price * int64(line.Quantity)
		}
	}

	if len(problems) > 0 {
		return nil, 0, domain.Invalid(op, "some items cannot be ordered: "+strings.Join(problems, "; "))
	}
	return items, subTotal, nil
}

// reserveCoupon claims one coupon use and validates the minimum order value.
// The conditional reservation cannot distinguish its failure causes, so on
// failure the coupon is re-read to produce a precise message.
func (s *orderService) reserveCoupon(ctx context.Context, op, code string, userID primitive.ObjectID, subTotal int64, now time.Time) (*domain.Coupon, error) {
	coupon, err := s.coupons.Reserve(ctx, code, userID, now)
	if err != nil {
		if errors.Is(err, repository.ErrCouponNotEligible) {
			return nil, s.couponRejection(ctx, op, code, now)
		}
		return nil, domain.Internal(err, op, "failed to apply coupon")
	}

	if coupon.MinOrderValue > 0 && subTotal < coupon.MinOrderValue {
		if relErr := s.coupons.Release(ctx, coupon.ID); relErr != nil {
			s.logger.Error("failed to release coupon after minimum check",
				slog.String("coupon", coupon.Code),
				slog.String("error", relErr.Error()))
		}
		return nil, domain.Invalid(op, fmt.Sprintf("coupon %s requires a minimum order of %d", coupon.Code, coupon.MinOrderValue))
	}
	return coupon, nil
}

func (s *orderService) couponRejection(ctx context.Context, op, code string, now time.Time) error {
	coupon, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound(op, "coupon", code)
		}
		return domain.Internal(err, op, "failed to get coupon")
	}

	switch {
	case coupon.Status != "active":
		return domain.Invalid(op, "this coupon is no longer active")
	case now.Before(coupon.StartDate):
		return domain.Invalid(op, "this coupon is not active yet")
	case now.After(coupon.EndDate):
		return domain.Invalid(op, "this coupon has expired")
	case coupon.MaxUses > 0 && coupon.CurrentUses >= coupon.MaxUses:
		return domain.Invalid(op, "this coupon has reached its usage limit")
	default:
		return domain.Invalid(op, "this coupon is not available for your account")
	}
}

// deductOrderStock subtracts stock for every order line. The order is
// already persisted at this point and every line passed validation, so a
// failure here is a race with another checkout; it is logged and surfaced
// through metrics rather than failing the order.
func (s *orderService) deductOrderStock(ctx context.Context, order *domain.Order, trigger string) {
	for _, item := range order.OrderItems {
		if err := s.inventory.DeductStock(ctx, item.Variant, item.Size, item.Quantity); err != nil {
			s.logger.Error("failed to deduct stock",
				slog.String("order", order.Code),
				slog.String("variant", item.Variant.Hex()),
				slog.String("error", err.Error()))
			if s.metrics != nil {
				s.metrics.StockDeductFailures.Inc()
			}
		}
	}
	if s.metrics != nil {
		s.metrics.StockDeductions.WithLabelValues(trigger).Inc()
	}
}

// consumeCartLines removes the purchased lines from the cart. A failure
// leaves stale lines behind, which is recoverable, so it only logs.
func (s *orderService) consumeCartLines(ctx context.Context, cart *domain.Cart) {
	if removed := cart.RemoveConsumedLines(); removed == 0 {
		return
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		s.logger.Warn("failed to remove purchased lines from cart",
			slog.String("user", cart.User.Hex()),
			slog.String("error", err.Error()))
	}
}

// generateOrderCode builds a human-readable unique code like
// ORD-20260830-4F7K2M. The random suffix makes collisions within a day
// vanishingly unlikely; the unique index on code catches the rest.
func generateOrderCode(now time.Time) string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	suffix := make([]byte, 6)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			// crypto/rand failing means the process is in serious trouble;
			// fall back to a time-derived digit.
			suffix[i] = alphabet[now.UnixNano()%int64(len(alphabet))]
			continue
		}
		suffix[i] = alphabet[n.Int64()]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
