package domain

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address is one stored delivery address in a user's address book.
type Address struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName      string             `bson:"fullName" json:"fullName"`
	Phone         string             `bson:"phone" json:"phone"`
	Province      string             `bson:"province" json:"province"`
	District      string             `bson:"district" json:"district"`
	Ward          string             `bson:"ward" json:"ward"`
	AddressDetail string             `bson:"addressDetail" json:"addressDetail"`
}

// User is the owning account. Only name/contact and the address book are
// consumed by this service; authentication is an external concern.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Addresses []Address          `bson:"addresses,omitempty" json:"addresses,omitempty"`
}

// ToShipping maps a stored address onto the denormalized order snapshot.
func (a Address) ToShipping() ShippingAddress {
	return ShippingAddress{
		Name:     a.FullName,
		Phone:    a.Phone,
		Province: a.Province,
		District: a.District,
		Ward:     a.Ward,
		Detail:   a.AddressDetail,
	}
}
