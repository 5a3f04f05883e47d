package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SizeStock is the inventory reservation unit: one (variant, size) pair.
// Every quantity mutation recomputes IsSizeAvailable (quantity > 0).
type SizeStock struct {
	Size            primitive.ObjectID `bson:"size" json:"size"`
	Quantity        int                `bson:"quantity" json:"quantity"`
	IsSizeAvailable bool               `bson:"isSizeAvailable" json:"isSizeAvailable"`
}

// Variant is a purchasable configuration of a product (e.g. a color), broken
// into per-size stock entries. Only the inventory view is consumed here;
// catalog management lives elsewhere.
type Variant struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Product   primitive.ObjectID `bson:"product" json:"product"`
	Sizes     []SizeStock        `bson:"sizes" json:"sizes"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// SizeStock returns the stock entry for the given size, if present.
func (v *Variant) SizeStock(sizeID primitive.ObjectID) (SizeStock, bool) {
	for _, s := range v.Sizes {
		if s.Size == sizeID {
			return s, true
		}
	}
	return SizeStock{}, false
}

// CouponType distinguishes percentage from fixed-amount discounts.
type CouponType string

const (
	CouponTypePercent CouponType = "percent"
	CouponTypeFixed   CouponType = "fixed"
)

// Coupon is the coupon ledger document. The order service reads and redeems;
// coupon CRUD is an external concern.
type Coupon struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Code          string               `bson:"code" json:"code"`
	Type          CouponType           `bson:"type" json:"type"`
	Value         int64                `bson:"value" json:"value"`
	MaxDiscount   int64                `bson:"maxDiscount,omitempty" json:"maxDiscount,omitempty"`
	MinOrderValue int64                `bson:"minOrderValue,omitempty" json:"minOrderValue,omitempty"`
	MaxUses       int64                `bson:"maxUses,omitempty" json:"maxUses,omitempty"`
	CurrentUses   int64                `bson:"currentUses" json:"currentUses"`
	Status        string               `bson:"status" json:"status"`
	StartDate     time.Time            `bson:"startDate" json:"startDate"`
	EndDate       time.Time            `bson:"endDate" json:"endDate"`
	IsPublic      bool                 `bson:"isPublic" json:"isPublic"`
	Users         []primitive.ObjectID `bson:"users,omitempty" json:"users,omitempty"`
}

// Discount computes the discount this coupon yields on the given subtotal.
// Percentage discounts are capped by MaxDiscount when present; fixed
// discounts are capped by the subtotal itself, so the discount never exceeds
// the order total.
func (cp *Coupon) Discount(subTotal int64) int64 {
	var discount int64
	switch cp.Type {
	case CouponTypePercent:
		discount = subTotal * cp.Value / 100
		if cp.MaxDiscount > 0 && discount > cp.MaxDiscount {
			discount = cp.MaxDiscount
		}
	case CouponTypeFixed:
		discount = cp.Value
		if discount > subTotal {
			discount = subTotal
		}
	}
	return discount
}

// Snapshot returns the immutable detail copied onto orders.
func (cp *Coupon) Snapshot() CouponDetail {
	return CouponDetail{
		Code:        cp.Code,
		Type:        cp.Type,
		Value:       cp.Value,
		MaxDiscount: cp.MaxDiscount,
	}
}
