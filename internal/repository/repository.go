package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/stridewear/api/internal/domain"
)

// Storage-level sentinel errors. The service layer translates these into
// domain errors with user-facing messages.
var (
	ErrNotFound = errors.New("document not found")

	// ErrInsufficientStock is returned when a conditional stock decrement
	// matches no document: the size entry is missing, unavailable, or holds
	// fewer units than requested.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrCouponNotEligible is returned when a conditional coupon reservation
	// matches no document: unknown code, inactive, outside its window, not
	// granted to the user, or usage cap reached.
	ErrCouponNotEligible = errors.New("coupon not eligible")
)

// OrderListFilter narrows order listings. SearchUserIDs carries the user ids
// already matched against the search term by the user store, so the order
// query stays a single collection scan.
type OrderListFilter struct {
	User          *primitive.ObjectID
	Status        domain.OrderStatus
	Search        string
	SearchUserIDs []primitive.ObjectID
	Page          int
	Limit         int
}

// CancelRequestListFilter narrows cancel-request listings.
type CancelRequestListFilter struct {
	User           *primitive.ObjectID
	Status         domain.CancelRequestStatus
	SearchUserIDs  []primitive.ObjectID
	SearchOrderIDs []primitive.ObjectID
	Page           int
	Limit          int
}

// OrderRepository is the order aggregate store.
type OrderRepository interface {
	Insert(ctx context.Context, order *domain.Order) (*domain.Order, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error)

	// Save persists the full mutated aggregate (status, history, flags,
	// timestamps). Orders are replaced as whole documents; per-document
	// atomicity is all the storage layer guarantees.
	Save(ctx context.Context, order *domain.Order) error

	// RequestCancellation sets the cancel gate on a confirmed order, but only
	// if no cancel request is already pending. Returns false when the
	// precondition fails, so two concurrent cancels cannot both pass.
	RequestCancellation(ctx context.Context, orderID, requestID primitive.ObjectID) (bool, error)

	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, int64, error)
	StatusCounts(ctx context.Context, userID primitive.ObjectID) (domain.OrderStats, error)
	FindIDsByCode(ctx context.Context, search string) ([]primitive.ObjectID, error)
}

// CancelRequestRepository is the cancel-request store.
type CancelRequestRepository interface {
	Insert(ctx context.Context, req *domain.CancelRequest) (*domain.CancelRequest, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.CancelRequest, error)
	Save(ctx context.Context, req *domain.CancelRequest) error
	List(ctx context.Context, filter CancelRequestListFilter) ([]domain.CancelRequest, int64, error)
}

// CartRepository is the cart snapshot collaborator.
type CartRepository interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
}

// InventoryRepository is the variant/size inventory store collaborator.
type InventoryRepository interface {
	FindVariant(ctx context.Context, id primitive.ObjectID) (*domain.Variant, error)

	// DeductStock atomically decrements one size entry, but only when it is
	// available and holds at least quantity units; a failed precondition
	// returns ErrInsufficientStock. The availability flag is recomputed after
	// the decrement.
	DeductStock(ctx context.Context, variantID, sizeID primitive.ObjectID, quantity int) error

	// RestoreStock increments one size entry and recomputes availability.
	RestoreStock(ctx context.Context, variantID, sizeID primitive.ObjectID, quantity int) error
}

// CouponRepository is the coupon ledger collaborator. Redemption is a
// reserve/release pair so a failed downstream step can return the usage slot.
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// Reserve conditionally claims one use of the coupon: the code must be
	// active, inside its validity window, public or granted to the user, and
	// under its usage cap. Returns ErrCouponNotEligible when no document
	// matches those conditions.
	Reserve(ctx context.Context, code string, userID primitive.ObjectID, now time.Time) (*domain.Coupon, error)

	// Release returns a previously reserved use.
	Release(ctx context.Context, id primitive.ObjectID) error
}

// UserRepository is the user/address lookup collaborator.
type UserRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	FindAddress(ctx context.Context, userID, addressID primitive.ObjectID) (*domain.Address, error)

	// SearchIDs returns ids of users whose name, email or phone matches the
	// term. Feeds admin listing searches.
	SearchIDs(ctx context.Context, term string) ([]primitive.ObjectID, error)
}
