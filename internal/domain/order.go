package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// statusTransitions is the forward edge set of the order state machine.
// Cancellation is deliberately absent: orders reach "cancelled" only through
// the cancel-request workflow, never through a direct status update.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed},
	OrderStatusConfirmed: {OrderStatusShipping},
	OrderStatusShipping:  {OrderStatusDelivered},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether the generic status-update operation may move
// an order from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in this status may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

// PaymentMethod identifies how an order is paid.
type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "COD"
	PaymentMethodVNPay PaymentMethod = "VNPAY"
)

// ValidPaymentMethod reports whether m is a supported payment method.
func ValidPaymentMethod(m PaymentMethod) bool {
	return m == PaymentMethodCOD || m == PaymentMethodVNPay
}

// PaymentStatus is the settlement state of an order's payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// PaymentInfo tracks the payment sub-state of an order. Payment is recorded,
// not processed; gateway integration lives outside this service.
type PaymentInfo struct {
	Method        PaymentMethod `bson:"method" json:"method"`
	PaymentStatus PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	PaidAt        *time.Time    `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	TransactionNo string        `bson:"transactionNo,omitempty" json:"transactionNo,omitempty"`
}

// OrderItem is a snapshot of one purchased line. Name, price and image are
// copied from the cart at creation time and never re-derived from the
// catalog, so historical orders stay stable when catalog data changes.
type OrderItem struct {
	Variant     primitive.ObjectID `bson:"variant" json:"variant"`
	Size        primitive.ObjectID `bson:"size" json:"size"`
	ProductName string             `bson:"productName" json:"productName"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	Price       int64              `bson:"price" json:"price"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
}

// ShippingAddress is a denormalized copy of the user's address at order time.
type ShippingAddress struct {
	Name     string `bson:"name" json:"name"`
	Phone    string `bson:"phone" json:"phone"`
	Province string `bson:"province" json:"province"`
	District string `bson:"district" json:"district"`
	Ward     string `bson:"ward" json:"ward"`
	Detail   string `bson:"detail" json:"detail"`
}

// CouponDetail is the immutable snapshot of the coupon applied to an order.
type CouponDetail struct {
	Code        string     `bson:"code" json:"code"`
	Type        CouponType `bson:"type" json:"type"`
	Value       int64      `bson:"value" json:"value"`
	MaxDiscount int64      `bson:"maxDiscount,omitempty" json:"maxDiscount,omitempty"`
}

// StatusHistoryEntry is one record in an order's append-only audit log.
type StatusHistoryEntry struct {
	Status    OrderStatus         `bson:"status" json:"status"`
	Note      string              `bson:"note,omitempty" json:"note,omitempty"`
	UpdatedAt time.Time           `bson:"updatedAt" json:"updatedAt"`
	UpdatedBy *primitive.ObjectID `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
}

// Order is the order aggregate: one checkout transaction, its status history
// and payment sub-state. Orders are mutated only by the order lifecycle
// service and never physically deleted.
type Order struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code string             `bson:"code" json:"code"`
	User primitive.ObjectID `bson:"user" json:"user"`

	OrderItems      []OrderItem     `bson:"orderItems" json:"orderItems"`
	ShippingAddress ShippingAddress `bson:"shippingAddress" json:"shippingAddress"`
	Note            string          `bson:"note,omitempty" json:"note,omitempty"`

	SubTotal                      int64 `bson:"subTotal" json:"subTotal"`
	Discount                      int64 `bson:"discount" json:"discount"`
	ShippingFee                   int64 `bson:"shippingFee" json:"shippingFee"`
	TotalAfterDiscountAndShipping int64 `bson:"totalAfterDiscountAndShipping" json:"totalAfterDiscountAndShipping"`

	Coupon       *primitive.ObjectID `bson:"coupon,omitempty" json:"coupon,omitempty"`
	CouponDetail *CouponDetail       `bson:"couponDetail,omitempty" json:"couponDetail,omitempty"`

	Status        OrderStatus          `bson:"status" json:"status"`
	StatusHistory []StatusHistoryEntry `bson:"statusHistory" json:"statusHistory"`
	Payment       PaymentInfo          `bson:"payment" json:"payment"`

	// InventoryDeducted is the single source of truth for whether stock has
	// been subtracted for this order. It prevents double-deduction and
	// double-restoration.
	InventoryDeducted bool `bson:"inventoryDeducted" json:"inventoryDeducted"`

	// HasCancelRequest gates status transitions: while true, nothing but the
	// cancellation resolution path may move the order forward.
	HasCancelRequest bool                `bson:"hasCancelRequest" json:"hasCancelRequest"`
	CancelRequestID  *primitive.ObjectID `bson:"cancelRequestId,omitempty" json:"cancelRequestId,omitempty"`
	CancelReason     string              `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`

	ConfirmedAt *time.Time `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	ShippingAt  *time.Time `bson:"shippingAt,omitempty" json:"shippingAt,omitempty"`
	DeliveredAt *time.Time `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CancelledAt *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// AppendHistory appends a status-history entry unless the last recorded entry
// already has the same status. The idempotent append is what keeps the audit
// log free of duplicate terminal entries without post-hoc cleanup.
func (o *Order) AppendHistory(entry StatusHistoryEntry) {
	if n := len(o.StatusHistory); n > 0 && o.StatusHistory[n-1].Status == entry.Status {
		return
	}
	o.StatusHistory = append(o.StatusHistory, entry)
}

// LastStatusBeforeCancellation scans the status history backward for the most
// recent non-cancelled status. Used when a cancellation is reversed. Defaults
// to pending when the history holds nothing else.
func (o *Order) LastStatusBeforeCancellation() OrderStatus {
	for i := len(o.StatusHistory) - 1; i >= 0; i-- {
		if o.StatusHistory[i].Status != OrderStatusCancelled {
			return o.StatusHistory[i].Status
		}
	}
	return OrderStatusPending
}

// OrderStats counts a user's orders per status.
type OrderStats struct {
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Shipping  int64 `json:"shipping"`
	Delivered int64 `json:"delivered"`
	Cancelled int64 `json:"cancelled"`
	Total     int64 `json:"total"`
}
