package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/nadhifra/storefront-checkout/internal/config"
	"github.com/nadhifra/storefront-checkout/internal/domain"
	"github.com/nadhifra/storefront-checkout/internal/usecase"
)

const (
	TopicOrderPlaced = "storefront.order.placed"

	SchemaVersion = 1
)

type OrderPlacedEvent struct {
	SchemaVersion  int       `json:"schema_version"`
	OrderID        string    `json:"order_id"`
	Subtotal       int64     `json:"subtotal"`
	Shipping       int64     `json:"shipping"`
	DiscountAmount int64     `json:"discount_amount"`
	Total          int64     `json:"total"`
	CouponCode     string    `json:"coupon_code,omitempty"`
	BuyerID        string    `json:"buyer_id,omitempty"`
	ItemCount      int       `json:"item_count"`
	PlacedAt       time.Time `json:"placed_at"`
}

// Publisher emits order notifications to Kafka. Orders are durable before
// publish runs, so delivery failures are logged by the caller, not retried.
type Publisher struct {
	client *kgo.Client
}

func NewPublisher(client *kgo.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
	}

	payload, err := json.Marshal(OrderPlacedEvent{
		SchemaVersion:  SchemaVersion,
		OrderID:        order.ID,
		Subtotal:       order.Subtotal,
		Shipping:       order.Shipping,
		DiscountAmount: order.DiscountAmount,
		Total:          order.Total,
		CouponCode:     order.CouponCode,
		BuyerID:        order.BuyerID,
		ItemCount:      count,
		PlacedAt:       order.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	record := &kgo.Record{
		Topic: TopicOrderPlaced,
		Key:   []byte(order.ID),
		Value: payload,
	}
	return p.client.ProduceSync(ctx, record).FirstErr()
}

func EnsureTopics(ctx context.Context, client *kgo.Client, cfg *config.Config) error {
	adm := kadm.NewClient(client)

	resp, err := adm.CreateTopics(ctx, int32(cfg.TopicPartitions()), cfg.ReplicationFactor(), nil, TopicOrderPlaced)
	if err != nil {
		return fmt.Errorf("failed to create topic %s: %w", TopicOrderPlaced, err)
	}
	for _, detail := range resp {
		if detail.Err != nil && !strings.Contains(detail.Err.Error(), "already exists") {
			return fmt.Errorf("failed to create topic %s: %w", detail.Topic, detail.Err)
		}
	}

	log.Println("All topics ensured")
	return nil
}

// LogPublisher stands in when event delivery is disabled.
type LogPublisher struct{}

func NewLogPublisher() usecase.OrderEventPublisher {
	return LogPublisher{}
}

func (LogPublisher) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	log.Printf("order placed: id=%s total=%d coupon=%q", order.ID, order.Total, order.CouponCode)
	return nil
}
