package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/go_cart/storefront-service/internal/publisher"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const GroupSlipArchiver = "storefront-slip-archiver"

type SlipArchiver interface {
	ArchiveSlip(ctx context.Context, orderID uuid.UUID) error
}

// Consumer reads order.completed events and makes sure every completed order
// has an archived slip.
type Consumer struct {
	archiver SlipArchiver
	reader   *kafka.Reader
}

func NewConsumer(archiver SlipArchiver, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    publisher.TopicOrderCompleted,
		GroupID:  GroupSlipArchiver,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{archiver: archiver, reader: reader}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// processMessage commits the offset even when archiving fails. A missing slip
// is rendered on download anyway.
func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.ErrorContext(ctx, "error reading message", "topic", publisher.TopicOrderCompleted, "error", err)
		return
	}

	if err := c.handle(ctx, m.Value); err != nil {
		slog.WarnContext(ctx, "order completed event not archived",
			"partition", m.Partition, "offset", m.Offset, "error", err)
	}
}

func (c *Consumer) handle(ctx context.Context, value []byte) error {
	var event publisher.OrderCompletedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("parse event: %w", err)
	}
	if event.OrderID == uuid.Nil {
		return errors.New("event has no order_id")
	}

	if err := c.archiver.ArchiveSlip(ctx, event.OrderID); err != nil {
		return fmt.Errorf("archive slip for order %s: %w", event.OrderID, err)
	}

	slog.DebugContext(ctx, "slip archived from event", "order_id", event.OrderID, "user_id", event.UserID)
	return nil
}
