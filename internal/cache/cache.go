package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/google/uuid"
)

// CartCache stores the active cart view of a user.
//
// Readers take Version before loading the cart from the store and pass it to
// Set. Delete bumps the version, so a view loaded before an invalidation can
// never be written after it.
type CartCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Order, error)
	Version(ctx context.Context, userID uuid.UUID) (int64, error)
	Set(ctx context.Context, userID uuid.UUID, cart *domain.Order, version int64) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStaleVersion means the cart was invalidated after the version was read.
	ErrStaleVersion = errors.New("cart view is stale")
)

// NoopCache is used when no Redis address is configured. Every Get misses.
type NoopCache struct{}

func (NoopCache) Get(context.Context, uuid.UUID) (*domain.Order, error) { return nil, ErrCacheMiss }

func (NoopCache) Version(context.Context, uuid.UUID) (int64, error) { return 0, nil }

func (NoopCache) Set(context.Context, uuid.UUID, *domain.Order, int64) error { return nil }

func (NoopCache) Delete(context.Context, uuid.UUID) error { return nil }
