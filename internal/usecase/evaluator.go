package usecase

import (
	"fmt"
	"time"

	"github.com/nadhifra/storefront-checkout/internal/domain"
)

// Evaluate decides whether a coupon applies to the given request and, when
// it does, computes the discount amount. It is a pure function: the looked-up
// coupon (or nil when the code matched nothing) is passed in, and redemption
// bookkeeping happens elsewhere. Checks run in a fixed order and the first
// failure short-circuits.
func Evaluate(coupon *domain.Coupon, req domain.EvaluationRequest, now time.Time) domain.EvaluationResult {
	if coupon == nil || !coupon.IsActive {
		return invalid(domain.ReasonNotFound, "Invalid or inactive coupon code.")
	}

	// Window is inclusive on both ends.
	if now.Before(coupon.StartDate) || now.After(coupon.EndDate) {
		return invalid(domain.ReasonExpired, "Coupon is expired.")
	}

	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return invalid(domain.ReasonLimitReached, "Coupon usage limit reached.")
	}

	if coupon.MinOrderAmount != nil && req.CartTotal < *coupon.MinOrderAmount {
		return invalid(domain.ReasonBelowMinimum,
			fmt.Sprintf("Minimum order amount of %d required for this coupon.", *coupon.MinOrderAmount))
	}

	if coupon.ApplicableTo == domain.ApplicableToFirstOrder {
		if req.BuyerID == "" && req.BuyerEmail == "" {
			return invalid(domain.ReasonLoginRequired, "Must be logged in for this coupon.")
		}
		// An unknown first-order flag passes; only an explicitly known
		// repeat customer is rejected. Order history is not consulted here.
		if req.IsFirstOrder != nil && !*req.IsFirstOrder {
			return invalid(domain.ReasonNotFirstOrder, "This coupon is for first-time customers only.")
		}
	}

	discount := coupon.DiscountValue
	if coupon.DiscountType == domain.DiscountPercentage {
		discount = req.CartTotal * coupon.DiscountValue / 100
		if coupon.MaxDiscountAmount != nil && discount > *coupon.MaxDiscountAmount {
			discount = *coupon.MaxDiscountAmount
		}
	}
	// Fixed discounts may exceed the cart total; the caller floors the
	// final total at zero.

	return domain.EvaluationResult{
		Valid:          true,
		DiscountAmount: discount,
		Message:        "Coupon applied successfully!",
	}
}

func invalid(reason domain.ReasonCode, message string) domain.EvaluationResult {
	return domain.EvaluationResult{Reason: reason, Message: message}
}
