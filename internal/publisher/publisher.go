package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	TopicOrderCompleted     = "order.completed"
	EventTypeOrderCompleted = "OrderCompleted"
)

type OrderCompletedItem struct {
	ProductID       uuid.UUID       `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// OrderCompletedEvent is the payload written to the order.completed topic.
type OrderCompletedEvent struct {
	OrderID     uuid.UUID            `json:"order_id"`
	UserID      uuid.UUID            `json:"user_id"`
	Items       []OrderCompletedItem `json:"items"`
	TotalItems  int                  `json:"total_items"`
	TotalPrice  decimal.Decimal      `json:"total_price"`
	CompletedAt time.Time            `json:"completed_at"`
}

func NewOrderCompletedEvent(order *domain.Order) OrderCompletedEvent {
	items := make([]OrderCompletedItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderCompletedItem{
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		})
	}

	completedAt := order.UpdatedAt
	if order.CompletedAt != nil {
		completedAt = *order.CompletedAt
	}

	return OrderCompletedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Items:       items,
		TotalItems:  order.TotalItems(),
		TotalPrice:  order.TotalPrice(),
		CompletedAt: completedAt,
	}
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicOrderCompleted,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishOrderCompleted(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(NewOrderCompletedEvent(order))
	if err != nil {
		return fmt.Errorf("marshal order completed event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.ID.String()), // order id keeps events of one order on one partition
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeOrderCompleted)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write order completed event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when no Kafka brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderCompleted(context.Context, *domain.Order) error { return nil }

func (NoopPublisher) Close() error { return nil }
