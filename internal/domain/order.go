package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusInCart    OrderStatus = "IN_CART"
	OrderStatusCompleted OrderStatus = "COMPLETED"
)

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// OrderItem is a cart line. PriceAtPurchase is captured when the row is first
// created and is never recomputed from the live product price.
type OrderItem struct {
	ID              uuid.UUID       `json:"id"`
	OrderID         uuid.UUID       `json:"order_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ShippingDetails is the contact snapshot stored on an order when it is completed.
type ShippingDetails struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Note    string `json:"note,omitempty"`
}

// Order doubles as the shopping cart: a user has at most one order with InCart set,
// and it flips to completed exactly once.
type Order struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	InCart      bool             `json:"in_cart"`
	Items       []OrderItem      `json:"items"`
	Shipping    *ShippingDetails `json:"shipping,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

func (o *Order) Status() OrderStatus {
	if o.InCart {
		return OrderStatusInCart
	}
	return OrderStatusCompleted
}

func (o *Order) IsEmpty() bool {
	return len(o.Items) == 0
}

func (o *Order) TotalItems() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

func (o *Order) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Item returns the line for the given product, if the order has one.
func (o *Order) Item(productID uuid.UUID) (*OrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i], true
		}
	}
	return nil, false
}
