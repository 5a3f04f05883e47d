package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CancelRequestStatus is the adjudication state of a cancel request.
type CancelRequestStatus string

const (
	CancelRequestPending  CancelRequestStatus = "pending"
	CancelRequestApproved CancelRequestStatus = "approved"
	CancelRequestRejected CancelRequestStatus = "rejected"
)

// ValidCancelDecision reports whether s is a decision an admin may record.
func ValidCancelDecision(s CancelRequestStatus) bool {
	return s == CancelRequestApproved || s == CancelRequestRejected
}

// CancelRequest is one user-initiated request to cancel an order. A request
// on a pending order is auto-approved; otherwise it waits for admin
// adjudication, and the decision may be reversed within a bounded window.
//
// At most one unresolved request exists per order at a time, enforced by the
// order's HasCancelRequest gate rather than a uniqueness constraint here:
// historical resolved requests accumulate.
type CancelRequest struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Order         primitive.ObjectID  `bson:"order" json:"order"`
	User          primitive.ObjectID  `bson:"user" json:"user"`
	Reason        string              `bson:"reason" json:"reason"`
	Status        CancelRequestStatus `bson:"status" json:"status"`
	AdminResponse string              `bson:"adminResponse,omitempty" json:"adminResponse,omitempty"`
	ProcessedBy   *primitive.ObjectID `bson:"processedBy,omitempty" json:"processedBy,omitempty"`
	ResolvedAt    *time.Time          `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
}
