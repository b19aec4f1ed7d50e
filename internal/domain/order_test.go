package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItem(qty int, price string) OrderItem {
	return OrderItem{
		ID:              uuid.New(),
		ProductID:       uuid.New(),
		Quantity:        qty,
		PriceAtPurchase: decimal.RequireFromString(price),
	}
}

func TestOrderItem_Subtotal(t *testing.T) {
	item := newItem(3, "100.00")
	assert.True(t, decimal.RequireFromString("300.00").Equal(item.Subtotal()))
}

func TestOrder_Totals(t *testing.T) {
	order := &Order{
		ID:     uuid.New(),
		InCart: true,
		Items: []OrderItem{
			newItem(3, "100.00"),
			newItem(2, "49.99"),
		},
	}

	assert.Equal(t, 5, order.TotalItems())
	assert.Equal(t, "399.98", order.TotalPrice().StringFixed(2))

	sum := decimal.Zero
	for _, item := range order.Items {
		sum = sum.Add(item.PriceAtPurchase.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	assert.True(t, sum.Equal(order.TotalPrice()))
}

func TestOrder_EmptyTotals(t *testing.T) {
	order := &Order{InCart: true}

	assert.True(t, order.IsEmpty())
	assert.Equal(t, 0, order.TotalItems())
	assert.True(t, order.TotalPrice().IsZero())
}

func TestOrder_Status(t *testing.T) {
	order := &Order{InCart: true}
	assert.Equal(t, OrderStatusInCart, order.Status())

	now := time.Now()
	order.InCart = false
	order.CompletedAt = &now
	assert.Equal(t, OrderStatusCompleted, order.Status())
	assert.Equal(t, "COMPLETED", order.Status().String())
}

func TestOrder_Item(t *testing.T) {
	first := newItem(1, "10.00")
	order := &Order{Items: []OrderItem{first, newItem(2, "5.00")}}

	found, ok := order.Item(first.ProductID)
	require.True(t, ok)
	assert.Equal(t, first.ID, found.ID)

	_, ok = order.Item(uuid.New())
	assert.False(t, ok)
}
