package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/fjod/go_cart/storefront-service/internal/publisher"
	"github.com/google/uuid"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

type archiverMock struct {
	mu     sync.Mutex
	err    error
	orders []uuid.UUID
}

func (a *archiverMock) ArchiveSlip(_ context.Context, orderID uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.orders = append(a.orders, orderID)
	return a.err
}

func (a *archiverMock) archived() []uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]uuid.UUID(nil), a.orders...)
}

func completedOrder() *domain.Order {
	now := time.Now()
	orderID := uuid.New()
	return &domain.Order{
		ID:          orderID,
		UserID:      uuid.New(),
		CompletedAt: &now,
		Items: []domain.OrderItem{
			{ID: uuid.New(), OrderID: orderID, ProductID: uuid.New(), ProductName: "Toner", Quantity: 2, PriceAtPurchase: decimal.NewFromInt(700)},
		},
	}
}

func TestHandle(t *testing.T) {
	order := completedOrder()
	payload, err := json.Marshal(publisher.NewOrderCompletedEvent(order))
	require.NoError(t, err)

	t.Run("archives order", func(t *testing.T) {
		archiver := &archiverMock{}
		c := &Consumer{archiver: archiver}

		require.NoError(t, c.handle(context.Background(), payload))
		assert.Equal(t, []uuid.UUID{order.ID}, archiver.archived())
	})

	t.Run("archiver error", func(t *testing.T) {
		c := &Consumer{archiver: &archiverMock{err: errors.New("render failed")}}

		err := c.handle(context.Background(), payload)
		assert.ErrorContains(t, err, "render failed")
		assert.ErrorContains(t, err, order.ID.String())
	})

	t.Run("malformed payload", func(t *testing.T) {
		archiver := &archiverMock{}
		c := &Consumer{archiver: archiver}

		assert.Error(t, c.handle(context.Background(), []byte("{not json")))
		assert.Error(t, c.handle(context.Background(), []byte(`{"user_id":"`+uuid.NewString()+`"}`)))
		assert.Empty(t, archiver.archived())
	})
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func createTopic(t *testing.T, broker string) {
	conn, err := kafkaGo.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             publisher.TopicOrderCompleted,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	require.NoError(t, err)
}

func TestConsumer_ArchivesPublishedOrders(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka integration test in short mode")
	}

	broker, cleanup := setupKafka(t)
	defer cleanup()
	createTopic(t, broker)

	pub := publisher.NewKafkaPublisher(broker)
	defer pub.Close()

	order := completedOrder()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	require.NoError(t, pub.PublishOrderCompleted(ctx, order))

	archiver := &archiverMock{}
	c := NewConsumer(archiver, broker)
	defer c.Close()

	go c.Run(ctx)

	require.Eventually(t, func() bool {
		return len(archiver.archived()) == 1
	}, 45*time.Second, 200*time.Millisecond)
	assert.Equal(t, order.ID, archiver.archived()[0])
}
