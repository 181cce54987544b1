package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nadhifra/storefront-checkout/internal/domain"
	"github.com/nadhifra/storefront-checkout/internal/repository"
)

// OrderEventPublisher notifies downstream consumers of placed orders.
// Publishing is best-effort; the order is already durable when it runs.
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order domain.Order) error
}

type CheckoutService struct {
	store  repository.Store
	events OrderEventPublisher
	now    func() time.Time
}

func NewCheckoutService(store repository.Store, events OrderEventPublisher) *CheckoutService {
	return &CheckoutService{
		store:  store,
		events: events,
		now:    time.Now,
	}
}

// ValidateCoupon looks up the coupon record and runs the evaluator over it.
// A missing record is a NOT_FOUND evaluation, not an error; only an
// unreachable store is reported as ErrStoreUnavailable so the transport
// layer can keep the two apart.
func (s *CheckoutService) ValidateCoupon(ctx context.Context, req domain.EvaluationRequest) (domain.EvaluationResult, error) {
	coupon, err := s.store.GetCouponByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, domain.ErrCouponNotFound) {
			return Evaluate(nil, req, s.now()), nil
		}
		return domain.EvaluationResult{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return Evaluate(&coupon, req, s.now()), nil
}

type PlaceOrderInput struct {
	Items        []domain.LineItem
	Shipping     int64
	CouponCode   string
	BuyerID      string
	BuyerEmail   string
	IsFirstOrder *bool
}

// PlaceOrder recomputes the subtotal server-side, applies the coupon when
// one is given, and persists the order together with the coupon redemption
// in a single transaction. The final total is floored at zero since a fixed
// discount may exceed the cart total.
func (s *CheckoutService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (domain.Order, error) {
	if len(in.Items) == 0 {
		return domain.Order{}, domain.ErrEmptyOrder
	}

	var subtotal int64
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return domain.Order{}, domain.ErrInvalidQuantity
		}
		subtotal += item.UnitPrice * int64(item.Quantity)
	}

	var discount int64
	if in.CouponCode != "" {
		result, err := s.ValidateCoupon(ctx, domain.EvaluationRequest{
			Code:         in.CouponCode,
			CartTotal:    subtotal,
			BuyerID:      in.BuyerID,
			BuyerEmail:   in.BuyerEmail,
			IsFirstOrder: in.IsFirstOrder,
		})
		if err != nil {
			return domain.Order{}, err
		}
		if !result.Valid {
			return domain.Order{}, &domain.CouponRejectedError{Result: result}
		}
		discount = result.DiscountAmount
	}

	total := subtotal + in.Shipping - discount
	if total < 0 {
		total = 0
	}

	order := domain.Order{
		ID:             uuid.New().String(),
		Items:          in.Items,
		Subtotal:       subtotal,
		Shipping:       in.Shipping,
		DiscountAmount: discount,
		Total:          total,
		CouponCode:     in.CouponCode,
		BuyerID:        in.BuyerID,
		BuyerEmail:     in.BuyerEmail,
		CreatedAt:      s.now(),
	}

	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		if err := q.InsertOrder(ctx, order); err != nil {
			return err
		}
		if in.CouponCode != "" {
			if err := q.IncrementUsedCount(ctx, in.CouponCode); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if s.events != nil {
		if err := s.events.PublishOrderPlaced(ctx, order); err != nil {
			log.Printf("order %s: failed to publish event: %v", order.ID, err)
		}
	}

	return order, nil
}
