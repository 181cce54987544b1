package usecase

import (
	"testing"
	"time"

	"github.com/nadhifra/storefront-checkout/internal/domain"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func activeCoupon() domain.Coupon {
	return domain.Coupon{
		Code:          "SPRING10",
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: 10,
		StartDate:     testNow.AddDate(0, -1, 0),
		EndDate:       testNow.AddDate(0, 1, 0),
		IsActive:      true,
		ApplicableTo:  domain.ApplicableToAll,
	}
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestEvaluate_MissingCoupon(t *testing.T) {
	result := Evaluate(nil, domain.EvaluationRequest{Code: "NOPE", CartTotal: 1000}, testNow)
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if result.Reason != domain.ReasonNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", result.Reason)
	}
	if result.Message != "Invalid or inactive coupon code." {
		t.Fatalf("unexpected message: %q", result.Message)
	}
}

func TestEvaluate_InactiveCoupon(t *testing.T) {
	coupon := activeCoupon()
	coupon.IsActive = false
	// Inactive also wins over any later check, here an exhausted limit.
	coupon.UsageLimit = intPtr(1)
	coupon.UsedCount = 5

	result := Evaluate(&coupon, domain.EvaluationRequest{CartTotal: 1000}, testNow)
	if result.Reason != domain.ReasonNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", result.Reason)
	}
}

func TestEvaluate_Window(t *testing.T) {
	coupon := activeCoupon()

	cases := []struct {
		name    string
		now     time.Time
		expired bool
	}{
		{"before start", coupon.StartDate.Add(-time.Second), true},
		{"at start", coupon.StartDate, false},
		{"inside", testNow, false},
		{"at end", coupon.EndDate, false},
		{"after end", coupon.EndDate.Add(time.Second), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Evaluate(&coupon, domain.EvaluationRequest{CartTotal: 1000}, tc.now)
			if tc.expired {
				if result.Reason != domain.ReasonExpired {
					t.Fatalf("expected EXPIRED, got valid=%v reason=%s", result.Valid, result.Reason)
				}
				if result.Message != "Coupon is expired." {
					t.Fatalf("unexpected message: %q", result.Message)
				}
			} else if !result.Valid {
				t.Fatalf("expected valid, got %s", result.Reason)
			}
		})
	}
}

func TestEvaluate_UsageLimit(t *testing.T) {
	coupon := activeCoupon()
	coupon.UsageLimit = intPtr(3)
	coupon.UsedCount = 3

	result := Evaluate(&coupon, domain.EvaluationRequest{CartTotal: 1000}, testNow)
	if result.Reason != domain.ReasonLimitReached {
		t.Fatalf("expected LIMIT_REACHED, got %s", result.Reason)
	}

	coupon.UsedCount = 2
	result = Evaluate(&coupon, domain.EvaluationRequest{CartTotal: 1000}, testNow)
	if !result.Valid {
		t.Fatalf("expected valid below the limit, got %s", result.Reason)
	}
}

func TestEvaluate_NoUsageLimit(t *testing.T) {
	coupon := activeCoupon()
	coupon.UsedCount = 1_000_000

	result := Evaluate(&coupon, domain.EvaluationRequest{CartTotal: 1000}, testNow)
	if !result.Valid {
		t.Fatalf("expected valid without a usage limit, got %s", result.Reason)
	}
}

func TestEvaluate_BelowMinimum(t *testing.T) {
	coupon := activeCoupon()
	coupon.MinOrderAmount = int64Ptr(500)

	result := Evaluate(&coupon, domain.EvaluationRequest{CartTotal: 499}, testNow)
	if result.Reason != domain.ReasonBelowMinimum {
		t.Fatalf("expected BELOW_MINIMUM, got %s", result.Reason)
	}
	if result.Message != "Minimum order amount of 500 required for this coupon." {
		t.Fatalf("unexpected message: %q", result.Message)
	}

	result = Evaluate(&coupon, domain.EvaluationRequest{CartTotal: 500}, testNow)
	if !result.Valid {
		t.Fatalf("expected valid at the exact minimum, got %s", result.Reason)
	}
}

func TestEvaluate_PercentageDiscount(t *testing.T) {
	coupon := activeCoupon()

	result := Evaluate(&coupon, domain.EvaluationRequest{CartTotal: 2500}, testNow)
	if !result.Valid {
		t.Fatalf("expected valid, got %s", result.Reason)
	}
	if result.DiscountAmount != 250 {
		t.Fatalf("expected discount 250, got %d", result.DiscountAmount)
	}
	if result.Message != "Coupon applied successfully!" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
}

func TestEvaluate_PercentageDiscountClamped(t *testing.T) {
	coupon := activeCoupon()
	coupon.MaxDiscountAmount = int64Ptr(500)

	result := Evaluate(&coupon, domain.EvaluationRequest{CartTotal: 10000}, testNow)
	if !result.Valid {
		t.Fatalf("expected valid, got %s", result.Reason)
	}
	if result.DiscountAmount != 500 {
		t.Fatalf("expected discount clamped to 500, got %d", result.DiscountAmount)
	}
}

func TestEvaluate_FixedDiscountExceedsCartTotal(t *testing.T) {
	coupon := activeCoupon()
	coupon.DiscountType = domain.DiscountFixed
	coupon.DiscountValue = 300
	// A cap applies to percentage coupons only.
	coupon.MaxDiscountAmount = int64Ptr(50)

	result := Evaluate(&coupon, domain.EvaluationRequest{CartTotal: 100}, testNow)
	if !result.Valid {
		t.Fatalf("expected valid, got %s", result.Reason)
	}
	if result.DiscountAmount != 300 {
		t.Fatalf("expected unclamped discount 300, got %d", result.DiscountAmount)
	}
}

func TestEvaluate_FirstOrderRequiresIdentity(t *testing.T) {
	coupon := activeCoupon()
	coupon.ApplicableTo = domain.ApplicableToFirstOrder

	result := Evaluate(&coupon, domain.EvaluationRequest{CartTotal: 1000}, testNow)
	if result.Reason != domain.ReasonLoginRequired {
		t.Fatalf("expected LOGIN_REQUIRED, got %s", result.Reason)
	}
}

func TestEvaluate_FirstOrderRepeatCustomer(t *testing.T) {
	coupon := activeCoupon()
	coupon.ApplicableTo = domain.ApplicableToFirstOrder

	result := Evaluate(&coupon, domain.EvaluationRequest{
		CartTotal:    1000,
		BuyerID:      "buyer-1",
		IsFirstOrder: boolPtr(false),
	}, testNow)
	if result.Reason != domain.ReasonNotFirstOrder {
		t.Fatalf("expected NOT_FIRST_ORDER, got %s", result.Reason)
	}
}

func TestEvaluate_FirstOrderUnknownHistoryPasses(t *testing.T) {
	coupon := activeCoupon()
	coupon.ApplicableTo = domain.ApplicableToFirstOrder

	// Email alone identifies the buyer; unknown history is trusted.
	result := Evaluate(&coupon, domain.EvaluationRequest{
		CartTotal:  1000,
		BuyerEmail: "buyer@example.com",
	}, testNow)
	if !result.Valid {
		t.Fatalf("expected valid with unknown history, got %s", result.Reason)
	}

	result = Evaluate(&coupon, domain.EvaluationRequest{
		CartTotal:    1000,
		BuyerID:      "buyer-1",
		IsFirstOrder: boolPtr(true),
	}, testNow)
	if !result.Valid {
		t.Fatalf("expected valid for first order, got %s", result.Reason)
	}
}

func TestEvaluate_CheckOrder(t *testing.T) {
	// An expired coupon that is also over its limit and below minimum
	// reports the earliest failing check.
	coupon := activeCoupon()
	coupon.EndDate = testNow.AddDate(0, 0, -1)
	coupon.UsageLimit = intPtr(1)
	coupon.UsedCount = 1
	coupon.MinOrderAmount = int64Ptr(10_000)

	result := Evaluate(&coupon, domain.EvaluationRequest{CartTotal: 1}, testNow)
	if result.Reason != domain.ReasonExpired {
		t.Fatalf("expected EXPIRED to win, got %s", result.Reason)
	}
}
