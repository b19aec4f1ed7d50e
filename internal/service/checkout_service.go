package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/archive"
	"github.com/fjod/go_cart/storefront-service/internal/cache"
	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/fjod/go_cart/storefront-service/internal/repository"
	"github.com/fjod/go_cart/storefront-service/internal/slip"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// EventPublisher announces completed orders to other systems.
type EventPublisher interface {
	PublishOrderCompleted(ctx context.Context, order *domain.Order) error
}

type SlipRenderer interface {
	Render(ctx context.Context, s *slip.Slip) (*slip.Document, error)
}

// CheckoutResult carries the completed order. Slip is nil when rendering
// failed; the slip can still be downloaded later.
type CheckoutResult struct {
	Order *domain.Order
	Slip  *slip.Document
}

type CheckoutService struct {
	orders   repository.OrderRepository
	users    repository.UserRepository
	cache    cache.CartCache
	renderer SlipRenderer
	archive  archive.SlipArchive
	events   EventPublisher
	validate *validator.Validate
	now      func() time.Time
}

func NewCheckoutService(
	orders repository.OrderRepository,
	users repository.UserRepository,
	cartCache cache.CartCache,
	renderer SlipRenderer,
	slips archive.SlipArchive,
	events EventPublisher,
) *CheckoutService {
	return &CheckoutService{
		orders:   orders,
		users:    users,
		cache:    cartCache,
		renderer: renderer,
		archive:  slips,
		events:   events,
		validate: NewValidator(),
		now:      time.Now,
	}
}

// Checkout turns the user's active cart into a completed order.
func (s *CheckoutService) Checkout(ctx context.Context, userID uuid.UUID, contact domain.Contact) (*CheckoutResult, error) {
	cart, err := s.orders.GetActiveCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, fmt.Errorf("load active cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	contact.Normalize()
	if err := validateContact(s.validate, &contact); err != nil {
		return nil, err
	}

	if err := s.users.UpdateContact(ctx, userID, contact); err != nil {
		if errors.Is(err, repository.ErrDuplicatePhone) {
			return nil, &ContactError{Fields: map[string]string{"phone_number": "is already registered to another account"}}
		}
		return nil, mapRepositoryError(err)
	}

	if err := s.orders.CompleteOrder(ctx, cart.ID, contact.ShippingDetails()); err != nil {
		slog.InfoContext(ctx, "order completion rejected", "order_id", cart.ID, "user_id", userID, "error", err)
		return nil, mapRepositoryError(err)
	}
	invalidateCart(ctx, s.cache, userID)

	order, err := s.orders.GetOrder(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("reload completed order: %w", err)
	}
	slog.InfoContext(ctx, "order completed",
		"order_id", order.ID, "user_id", userID, "items", order.TotalItems(), "total", order.TotalPrice().StringFixed(2))

	if err := s.events.PublishOrderCompleted(ctx, order); err != nil {
		slog.WarnContext(ctx, "publish order completed failed", "order_id", order.ID, "error", err)
	}

	customer := contact.ShippingDetails()
	if order.Shipping != nil {
		customer = *order.Shipping
	}

	result := &CheckoutResult{Order: order}
	doc, err := s.renderSlip(ctx, order, customer)
	if err != nil {
		slog.WarnContext(ctx, "slip not rendered at checkout", "order_id", order.ID, "error", err)
		return result, nil
	}
	result.Slip = doc
	return result, nil
}

// DownloadSlip renders the slip of an order owned by the user. A nil orderID
// means the active cart.
func (s *CheckoutService) DownloadSlip(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID) (*slip.Document, error) {
	order, err := s.slipOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsEmpty() {
		return nil, ErrEmptyCart
	}

	if !order.InCart {
		doc, err := s.archive.Get(ctx, order.ID)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, archive.ErrSlipNotFound) {
			slog.WarnContext(ctx, "slip archive lookup failed", "order_id", order.ID, "error", err)
		}
	}

	customer, err := s.customerFor(ctx, order)
	if err != nil {
		return nil, err
	}
	return s.renderSlip(ctx, order, customer)
}

// ArchiveSlip stores the slip of a completed order unless one is already
// archived. It backfills slips that could not be rendered at checkout.
func (s *CheckoutService) ArchiveSlip(ctx context.Context, orderID uuid.UUID) error {
	_, err := s.archive.Get(ctx, orderID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, archive.ErrSlipNotFound) {
		return fmt.Errorf("look up archived slip: %w", err)
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return mapRepositoryError(err)
	}
	if order.InCart {
		return fmt.Errorf("order %s is not completed", orderID)
	}

	customer, err := s.customerFor(ctx, order)
	if err != nil {
		return err
	}
	sl, err := slip.New(order, customer, s.now())
	if err != nil {
		return err
	}
	doc, err := s.renderer.Render(ctx, sl)
	if err != nil {
		return err
	}
	if err := s.archive.Put(ctx, doc); err != nil {
		return fmt.Errorf("archive slip: %w", err)
	}
	return nil
}

func (s *CheckoutService) ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders, err := s.orders.ListCompletedOrders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list completed orders: %w", err)
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	return orders, nil
}

func (s *CheckoutService) slipOrder(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID) (*domain.Order, error) {
	if orderID == nil {
		cart, err := s.orders.GetActiveCart(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
		if err != nil {
			return nil, fmt.Errorf("load active cart: %w", err)
		}
		return cart, nil
	}

	order, err := s.orders.GetOrder(ctx, *orderID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	// someone else's order is reported as missing
	if order.UserID != userID {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, order.ID)
	}
	return order, nil
}

// customerFor prints the snapshot for completed orders and the current profile for carts.
func (s *CheckoutService) customerFor(ctx context.Context, order *domain.Order) (domain.ShippingDetails, error) {
	if !order.InCart && order.Shipping != nil {
		return *order.Shipping, nil
	}

	user, err := s.users.GetUser(ctx, order.UserID)
	if err != nil {
		return domain.ShippingDetails{}, mapRepositoryError(err)
	}
	return user.ShippingDetails(), nil
}

// renderSlip renders the order and archives the result when the order is completed.
func (s *CheckoutService) renderSlip(ctx context.Context, order *domain.Order, customer domain.ShippingDetails) (*slip.Document, error) {
	sl, err := slip.New(order, customer, s.now())
	if err != nil {
		if errors.Is(err, slip.ErrEmptyOrder) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}

	doc, err := s.renderer.Render(ctx, sl)
	if err != nil {
		return nil, err
	}

	if !order.InCart {
		if err := s.archive.Put(ctx, doc); err != nil {
			slog.WarnContext(ctx, "slip archive store failed", "order_id", order.ID, "error", err)
		}
	}
	return doc, nil
}
