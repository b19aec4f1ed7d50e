package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LowStockThreshold is the stock level below which a product is reported as running low.
const LowStockThreshold = 10

type Brand struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Product struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	BrandID        uuid.UUID       `json:"brand_id"`
	BrandName      string          `json:"brand_name"`
	CategoryID     uuid.UUID       `json:"category_id"`
	CategoryName   string          `json:"category_name"`
	Details        string          `json:"details"`
	ImageURL       string          `json:"image_url,omitempty"`
	Price          decimal.Decimal `json:"price"`
	AvailableStock int             `json:"available_stock"`
	Featured       bool            `json:"featured"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (p *Product) IsInStock() bool {
	return p.AvailableStock > 0
}

// StockStatus returns the human readable availability label shown next to a product.
func (p *Product) StockStatus() string {
	switch {
	case p.AvailableStock <= 0:
		return "Out of Stock"
	case p.AvailableStock < LowStockThreshold:
		return fmt.Sprintf("Low Stock (%d left)", p.AvailableStock)
	default:
		return "In Stock"
	}
}
