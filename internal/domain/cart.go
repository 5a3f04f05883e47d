package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem is one line a user selected prior to checkout. Price and product
// name are snapshots taken when the line was added.
type CartItem struct {
	Variant     primitive.ObjectID `bson:"variant" json:"variant"`
	Size        primitive.ObjectID `bson:"size" json:"size"`
	ProductName string             `bson:"productName" json:"productName"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	Price       int64              `bson:"price" json:"price"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	IsSelected  bool               `bson:"isSelected" json:"isSelected"`
	IsAvailable bool               `bson:"isAvailable" json:"isAvailable"`
}

// Cart holds a user's pending line items. One cart per user.
type Cart struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User       primitive.ObjectID `bson:"user" json:"user"`
	CartItems  []CartItem         `bson:"cartItems" json:"cartItems"`
	TotalItems int                `bson:"totalItems" json:"totalItems"`
	SubTotal   int64              `bson:"subTotal" json:"subTotal"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// SelectedItems returns the lines marked for checkout.
func (c *Cart) SelectedItems() []CartItem {
	var selected []CartItem
	for _, item := range c.CartItems {
		if item.IsSelected {
			selected = append(selected, item)
		}
	}
	return selected
}

// RemoveConsumedLines drops every selected-and-available line and recomputes
// the remaining total and item count. Lines not selected stay untouched.
func (c *Cart) RemoveConsumedLines() int {
	kept := c.CartItems[:0]
	removed := 0
	for _, item := range c.CartItems {
		if item.IsSelected && item.IsAvailable {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	c.CartItems = kept

	c.TotalItems = 0
	c.SubTotal = 0
	for _, item := range c.CartItems {
		c.TotalItems += item.Quantity
		c.SubTotal += item.Price * int64(item.Quantity)
	}
	return removed
}
