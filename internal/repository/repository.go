package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrCartNotFound      = errors.New("active cart not found")
	ErrItemNotFound      = errors.New("order item not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrOrderNotActive    = errors.New("order is no longer in the cart")
	ErrDuplicatePhone    = errors.New("phone number is already registered")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockShortage reports the first order line whose quantity exceeds the stock
// left for its product. It matches ErrInsufficientStock with errors.Is.
type StockShortage struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (e *StockShortage) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *StockShortage) Is(target error) bool {
	return target == ErrInsufficientStock
}

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// ItemRef is an order item together with the ownership data of its order.
type ItemRef struct {
	Item   domain.OrderItem
	UserID uuid.UUID
	InCart bool
}

type CatalogRepository interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListFeaturedProducts(ctx context.Context, limit int) ([]*domain.Product, error)
	ListLatestProducts(ctx context.Context, limit int) ([]*domain.Product, error)
	ListRelatedProducts(ctx context.Context, product *domain.Product, limit int) ([]*domain.Product, error)
	ListBrands(ctx context.Context) ([]*domain.Brand, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
}

type OrderRepository interface {
	// EnsureActiveCart returns the user's active cart, creating it if needed.
	// Concurrent calls for the same user return the same order.
	EnsureActiveCart(ctx context.Context, userID uuid.UUID) (*domain.Order, error)
	GetActiveCart(ctx context.Context, userID uuid.UUID) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListCompletedOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	GetItem(ctx context.Context, itemID uuid.UUID) (*ItemRef, error)

	// AddItem inserts a line priced at the product's current price, or adds
	// quantity to the existing line for the same product. The price of an
	// existing line is left untouched.
	AddItem(ctx context.Context, orderID uuid.UUID, product *domain.Product, quantity int) (*domain.OrderItem, error)
	SetItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, itemID uuid.UUID) error

	// CompleteOrder checks every line against current stock and, only if all
	// of them fit, deducts the stock and closes the order. It is all-or-nothing.
	CompleteOrder(ctx context.Context, orderID uuid.UUID, shipping domain.ShippingDetails) error
}

type UserRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateContact(ctx context.Context, id uuid.UUID, contact domain.Contact) error
}

type Store interface {
	CatalogRepository
	OrderRepository
	UserRepository
	Close() error
}
