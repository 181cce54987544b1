package domain

import (
	"errors"
	"time"
)

var (
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrDuplicateCoupon   = errors.New("coupon already exists")
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicateProduct  = errors.New("product already exists")
	ErrInvalidQuantity   = errors.New("quantity must be a positive integer")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	ErrStoreUnavailable  = errors.New("storage unavailable")
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Applicability string

const (
	ApplicableToAll        Applicability = "all"
	ApplicableToFirstOrder Applicability = "first-order"
)

// Coupon is a discount rule keyed by a unique, case-sensitive code.
// Optional constraints are pointers so "unset" stays distinguishable from
// zero. The evaluator treats Coupon as read-only; UsedCount is advanced
// only by the order transaction.
type Coupon struct {
	Code              string
	DiscountType      DiscountType
	DiscountValue     int64
	MinOrderAmount    *int64
	MaxDiscountAmount *int64
	UsageLimit        *int
	UsedCount         int
	StartDate         time.Time
	EndDate           time.Time
	IsActive          bool
	ApplicableTo      Applicability
}

// EvaluationRequest carries the cart total and buyer identity hints for a
// coupon check. IsFirstOrder is tri-state: nil means unknown.
type EvaluationRequest struct {
	Code         string
	CartTotal    int64
	BuyerID      string
	BuyerEmail   string
	IsFirstOrder *bool
}

type ReasonCode string

const (
	ReasonNotFound          ReasonCode = "NOT_FOUND"
	ReasonExpired           ReasonCode = "EXPIRED"
	ReasonLimitReached      ReasonCode = "LIMIT_REACHED"
	ReasonBelowMinimum      ReasonCode = "BELOW_MINIMUM"
	ReasonLoginRequired     ReasonCode = "LOGIN_REQUIRED"
	ReasonNotFirstOrder     ReasonCode = "NOT_FIRST_ORDER"
	ReasonSystemUnavailable ReasonCode = "SYSTEM_UNAVAILABLE"
)

// EvaluationResult is the tagged outcome of a coupon check. Reason is empty
// when Valid is true.
type EvaluationResult struct {
	Valid          bool
	DiscountAmount int64
	Reason         ReasonCode
	Message        string
}

// CouponRejectedError wraps an invalid EvaluationResult so order placement
// can surface the exact rejection reason to the caller.
type CouponRejectedError struct {
	Result EvaluationResult
}

func (e *CouponRejectedError) Error() string {
	return e.Result.Message
}

// LineItem is one distinct (product, size, color) selection in a cart.
// Prices are integer minor currency units; the domain has no fractional
// subunit, so all money stays in int64.
type LineItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type Product struct {
	ID        string
	Name      string
	Price     int64
	Sizes     []string
	Colors    []string
	CreatedAt time.Time
}

type Order struct {
	ID             string
	Items          []LineItem
	Subtotal       int64
	Shipping       int64
	DiscountAmount int64
	Total          int64
	CouponCode     string
	BuyerID        string
	BuyerEmail     string
	CreatedAt      time.Time
}
