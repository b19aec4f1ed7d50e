package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// versionTTL outlives any cart entry so a version never resets under a live view.
const versionTTL = 24 * time.Hour

// setIfVersion writes the cart only while the version key still holds the
// version the reader started from. A missing version key counts as 0.
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if current == false then current = '0' end
if current ~= ARGV[2] then return 0 end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// invalidate bumps the version and drops the cart in one step.
var invalidate = redis.NewScript(`
redis.call('INCR', KEYS[2])
redis.call('PEXPIRE', KEYS[2], ARGV[1])
return redis.call('DEL', KEYS[1])
`)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Order
	if err2 := json.Unmarshal(data, &cart); err2 != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err2)
	}

	return &cart, nil
}

func (r RedisCache) Version(ctx context.Context, userID uuid.UUID) (int64, error) {
	version, err := r.client.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version failed: %w", err)
	}
	return version, nil
}

func (r RedisCache) Set(ctx context.Context, userID uuid.UUID, cart *domain.Order, version int64) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	// jitter spreads expirations of carts cached at the same moment
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter

	written, err := setIfVersion.Run(ctx, r.client,
		[]string{cacheKey(userID), versionKey(userID)},
		data, version, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	if written == 0 {
		return ErrStaleVersion
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context, userID uuid.UUID) error {
	err := invalidate.Run(ctx, r.client,
		[]string{cacheKey(userID), versionKey(userID)},
		versionTTL.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("storefront:cart:%s", userID)
}

func versionKey(userID uuid.UUID) string {
	return fmt.Sprintf("storefront:cart:%s:version", userID)
}
