package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level observability
// of the order pipeline.
type BusinessMetrics struct {
	// Checkout
	OrdersCreated  *prometheus.CounterVec
	OrderValue     *prometheus.HistogramVec
	OrderItemCount prometheus.Histogram

	// Lifecycle
	StatusTransitions *prometheus.CounterVec
	OrdersCancelled   *prometheus.CounterVec
	CancelDecisions   *prometheus.CounterVec

	// Inventory bookkeeping
	StockDeductions      *prometheus.CounterVec
	StockDeductFailures  prometheus.Counter
	StockRestoreFailures prometheus.Counter

	// Coupons
	CouponsReserved prometheus.Counter
	CouponsReleased prometheus.Counter
}

// NewBusinessMetrics creates and registers all business metrics with the
// given namespace prefix. Call once per process; promauto panics on
// duplicate registration.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	return &BusinessMetrics{
		OrdersCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_created_total",
				Help:      "Total number of orders created",
			},
			[]string{"payment_method"},
		),
		OrderValue: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "order_value_vnd",
				Help:      "Distribution of order totals in VND",
				Buckets:   prometheus.ExponentialBuckets(100_000, 2, 10),
			},
			[]string{"payment_method"},
		),
		OrderItemCount: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "order_item_count",
				Help:      "Distribution of line counts per order",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
			},
		),
		StatusTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_status_transitions_total",
				Help:      "Order status transitions by from/to pair",
			},
			[]string{"from", "to"},
		),
		OrdersCancelled: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_cancelled_total",
				Help:      "Cancelled orders by origin (auto or admin)",
			},
			[]string{"origin"},
		),
		CancelDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cancel_request_decisions_total",
				Help:      "Admin decisions on cancellation requests",
			},
			[]string{"decision"},
		),
		StockDeductions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stock_deductions_total",
				Help:      "Inventory deductions by trigger (checkout or payment)",
			},
			[]string{"trigger"},
		),
		StockDeductFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stock_deduct_failures_total",
				Help:      "Inventory deductions that failed after the order was persisted",
			},
		),
		StockRestoreFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stock_restore_failures_total",
				Help:      "Inventory restorations that failed during cancellation",
			},
		),
		CouponsReserved: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "coupons_reserved_total",
				Help:      "Coupon uses reserved at checkout",
			},
		),
		CouponsReleased: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "coupons_released_total",
				Help:      "Coupon uses released after a failed checkout",
			},
		),
	}
}
