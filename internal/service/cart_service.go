package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/cache"
	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/fjod/go_cart/storefront-service/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	catalog repository.CatalogRepository
	orders  repository.OrderRepository
	cache   cache.CartCache
	sfg     singleflight.Group // Prevents cache stampede
}

func NewCartService(catalog repository.CatalogRepository, orders repository.OrderRepository, cartCache cache.CartCache) *CartService {
	return &CartService{
		catalog: catalog,
		orders:  orders,
		cache:   cartCache,
	}
}

// GetCart returns the active cart, or an empty cart view when the user has none.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	v, err, _ := s.sfg.Do(userID.String(), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.WarnContext(ctx, "cart cache get failed", "user_id", userID, "error", err)
		}

		// version is read before the store so a concurrent invalidation rejects our Set
		version, errVersion := s.cache.Version(ctx, userID)
		if errVersion != nil {
			slog.WarnContext(ctx, "cart cache version failed", "user_id", userID, "error", errVersion)
		}

		cart, err = s.orders.GetActiveCart(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			cart = &domain.Order{UserID: userID, InCart: true, Items: []domain.OrderItem{}}
		} else if err != nil {
			return nil, fmt.Errorf("load active cart: %w", err)
		}

		if errVersion != nil {
			return cart, nil
		}
		errSet := s.cache.Set(ctx, userID, cart, version)
		switch {
		case errors.Is(errSet, cache.ErrStaleVersion):
			slog.DebugContext(ctx, "cart changed while loading, view not cached", "user_id", userID)
		case errSet != nil:
			slog.WarnContext(ctx, "cart cache set failed", "user_id", userID, "error", errSet)
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Order), nil
}

// AddItem puts quantity units of a product into the user's active cart,
// creating the cart on first use. Stock is checked but not reserved.
func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.OrderItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if !product.IsInStock() {
		return nil, fmt.Errorf("%w: %s", ErrOutOfStock, product.Name)
	}

	cart, err := s.orders.GetActiveCart(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return nil, fmt.Errorf("load active cart: %w", err)
	}
	if err := checkCartStock(cart, product, quantity); err != nil {
		return nil, err
	}

	if cart == nil {
		cart, err = s.orders.EnsureActiveCart(ctx, userID)
		if err != nil {
			return nil, mapRepositoryError(err)
		}
	}

	item, err := s.orders.AddItem(ctx, cart.ID, product, quantity)
	if errors.Is(err, repository.ErrOrderNotActive) {
		// the cart was checked out after we read it; start a new one and retry once
		slog.InfoContext(ctx, "cart closed during add, retrying on new cart", "user_id", userID, "order_id", cart.ID)
		item, err = s.addToFreshCart(ctx, userID, product, quantity)
	}
	if err != nil {
		slog.ErrorContext(ctx, "repo add item failed", "user_id", userID, "product_id", productID, "error", err)
		return nil, mapRepositoryError(err)
	}

	s.invalidateCache(ctx, userID)
	return item, nil
}

func (s *CartService) addToFreshCart(ctx context.Context, userID uuid.UUID, product *domain.Product, quantity int) (*domain.OrderItem, error) {
	cart, err := s.orders.EnsureActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := checkCartStock(cart, product, quantity); err != nil {
		return nil, err
	}
	return s.orders.AddItem(ctx, cart.ID, product, quantity)
}

// checkCartStock rejects an add that would leave the cart holding more units than stock.
func checkCartStock(cart *domain.Order, product *domain.Product, quantity int) error {
	existing := 0
	if cart != nil {
		if item, ok := cart.Item(product.ID); ok {
			existing = item.Quantity
		}
	}
	if existing+quantity > product.AvailableStock {
		return fmt.Errorf("%w: %s has %d left, cart would hold %d",
			ErrInsufficientStock, product.Name, product.AvailableStock, existing+quantity)
	}
	return nil
}

// UpdateItem sets the quantity of a cart line. A quantity below 1 removes the line.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	ref, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return err
	}

	if quantity < 1 {
		return s.removeItem(ctx, userID, itemID)
	}

	product, err := s.catalog.GetProduct(ctx, ref.Item.ProductID)
	if err != nil {
		return mapRepositoryError(err)
	}
	if quantity > product.AvailableStock {
		return fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, product.Name, product.AvailableStock)
	}

	if err := s.orders.SetItemQuantity(ctx, itemID, quantity); err != nil {
		slog.ErrorContext(ctx, "repo update item quantity failed", "item_id", itemID, "error", err)
		return mapRepositoryError(err)
	}

	s.invalidateCache(ctx, userID)
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		return err
	}
	return s.removeItem(ctx, userID, itemID)
}

func (s *CartService) removeItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if err := s.orders.RemoveItem(ctx, itemID); err != nil {
		slog.ErrorContext(ctx, "repo remove item failed", "item_id", itemID, "error", err)
		return mapRepositoryError(err)
	}

	s.invalidateCache(ctx, userID)
	return nil
}

// ownedItem loads an item and checks it sits in the active cart of userID.
func (s *CartService) ownedItem(ctx context.Context, userID, itemID uuid.UUID) (*repository.ItemRef, error) {
	ref, err := s.orders.GetItem(ctx, itemID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if ref.UserID != userID || !ref.InCart {
		return nil, ErrForbidden
	}
	return ref, nil
}

func (s *CartService) invalidateCache(ctx context.Context, userID uuid.UUID) {
	invalidateCart(ctx, s.cache, userID)
}

func invalidateCart(ctx context.Context, c cache.CartCache, userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := c.Delete(ctx, userID); err != nil {
		slog.WarnContext(ctx, "cart cache invalidate failed", "user_id", userID, "error", err)
	}
}
