package slip

import (
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StoreName   = "PookieCare"
	ContentType = "application/pdf"
	Currency    = "BDT"
)

var ErrEmptyOrder = errors.New("slip requires at least one order item")

// Line is one row of the item table. Subtotal comes from the persisted snapshot price.
type Line struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// Slip is everything printed on an order slip. Renderers only read it.
type Slip struct {
	OrderID    uuid.UUID
	Status     domain.OrderStatus
	PlacedAt   time.Time
	PrintedAt  time.Time
	Customer   domain.ShippingDetails
	Lines      []Line
	TotalItems int
	Total      decimal.Decimal
}

// New builds the slip for an order. For completed orders PlacedAt is the
// completion time, for carts it is the creation time.
func New(order *domain.Order, customer domain.ShippingDetails, printedAt time.Time) (*Slip, error) {
	if order.IsEmpty() {
		return nil, ErrEmptyOrder
	}

	placedAt := order.CreatedAt
	if order.CompletedAt != nil {
		placedAt = *order.CompletedAt
	}

	lines := make([]Line, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, Line{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.PriceAtPurchase,
			Subtotal:    item.Subtotal(),
		})
	}

	return &Slip{
		OrderID:    order.ID,
		Status:     order.Status(),
		PlacedAt:   placedAt,
		PrintedAt:  printedAt,
		Customer:   customer,
		Lines:      lines,
		TotalItems: order.TotalItems(),
		Total:      order.TotalPrice(),
	}, nil
}

func (s *Slip) StatusLabel() string {
	if s.Status == domain.OrderStatusCompleted {
		return "Completed"
	}
	return "In Cart"
}

// FormatMoney renders an amount with exactly two decimals.
func FormatMoney(d decimal.Decimal) string {
	return fmt.Sprintf("%s %s", Currency, d.StringFixed(2))
}

func formatTime(t time.Time) string {
	return t.Format("02 Jan 2006, 15:04")
}

// Document is a rendered slip ready to be served or archived.
type Document struct {
	OrderID     uuid.UUID
	Filename    string
	ContentType string
	Content     []byte
	ETag        string
	RenderedAt  time.Time
}

func Filename(orderID uuid.UUID) string {
	return fmt.Sprintf("order-slip-%s.pdf", orderID)
}

func NewDocument(orderID uuid.UUID, content []byte, renderedAt time.Time) *Document {
	return &Document{
		OrderID:     orderID,
		Filename:    Filename(orderID),
		ContentType: ContentType,
		Content:     content,
		ETag:        fmt.Sprintf(`"%016x"`, xxhash.Sum64(content)),
		RenderedAt:  renderedAt,
	}
}
