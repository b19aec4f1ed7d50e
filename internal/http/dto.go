package http

import (
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/google/uuid"
)

type ProductDTO struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Brand          string    `json:"brand"`
	Category       string    `json:"category"`
	Details        string    `json:"details,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	Price          string    `json:"price"`
	AvailableStock int       `json:"available_stock"`
	StockStatus    string    `json:"stock_status"`
	Featured       bool      `json:"featured"`
}

type OrderItemDTO struct {
	ID              uuid.UUID `json:"id"`
	ProductID       uuid.UUID `json:"product_id"`
	ProductName     string    `json:"product_name"`
	Quantity        int       `json:"quantity"`
	PriceAtPurchase string    `json:"price_at_purchase"`
	Subtotal        string    `json:"subtotal"`
}

type OrderDTO struct {
	ID          *uuid.UUID              `json:"id,omitempty"`
	Status      string                  `json:"status"`
	Items       []OrderItemDTO          `json:"items"`
	TotalItems  int                     `json:"total_items"`
	TotalPrice  string                  `json:"total_price"`
	Shipping    *domain.ShippingDetails `json:"shipping,omitempty"`
	CreatedAt   *time.Time              `json:"created_at,omitempty"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
}

func convertProduct(p *domain.Product) ProductDTO {
	return ProductDTO{
		ID:             p.ID,
		Name:           p.Name,
		Brand:          p.BrandName,
		Category:       p.CategoryName,
		Details:        p.Details,
		ImageURL:       p.ImageURL,
		Price:          p.Price.StringFixed(2),
		AvailableStock: p.AvailableStock,
		StockStatus:    p.StockStatus(),
		Featured:       p.Featured,
	}
}

func convertProducts(products []*domain.Product) []ProductDTO {
	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, convertProduct(p))
	}
	return dtos
}

// convertOrder renders money as strings with two decimals. An empty cart view
// that was never persisted has no id or timestamps.
func convertOrder(o *domain.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ID:              item.ID,
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase.StringFixed(2),
			Subtotal:        item.Subtotal().StringFixed(2),
		})
	}

	dto := OrderDTO{
		Status:      o.Status().String(),
		Items:       items,
		TotalItems:  o.TotalItems(),
		TotalPrice:  o.TotalPrice().StringFixed(2),
		Shipping:    o.Shipping,
		CompletedAt: o.CompletedAt,
	}
	if o.ID != uuid.Nil {
		id := o.ID
		created := o.CreatedAt
		dto.ID = &id
		dto.CreatedAt = &created
	}
	return dto
}
