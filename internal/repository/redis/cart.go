// Package redis stores carts in Redis hashes, one hash per user.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const cartKeyPrefix = "cart:"

// addScript accumulates onto one field and drops it once it is no longer
// positive. Redis removes a hash with no fields, so an emptied cart leaves no
// key behind. Running it as a script makes the read-modify-write atomic.
var addScript = goredis.NewScript(`
local v = redis.call('HINCRBYFLOAT', KEYS[1], ARGV[1], ARGV[2])
if tonumber(v) <= 0 then
	redis.call('HDEL', KEYS[1], ARGV[1])
	return '0'
end
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return v
`)

type cartStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

// Connect parses url and pings the server.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewCartStore creates a CartStore backed by Redis. Carts idle for longer
// than ttl expire; a zero ttl keeps them until cleared.
func NewCartStore(rdb *goredis.Client, ttl time.Duration) repository.CartStore {
	return &cartStore{rdb: rdb, ttl: ttl}
}

func cartKey(userID string) string {
	return cartKeyPrefix + userID
}

func (s *cartStore) Add(ctx context.Context, userID, productID string, amount float64) (float64, error) {
	res, err := addScript.Run(ctx, s.rdb, []string{cartKey(userID)},
		productID,
		strconv.FormatFloat(amount, 'f', -1, 64),
		s.ttl.Milliseconds(),
	).Text()
	if err != nil {
		return 0, fmt.Errorf("failed to add to cart %s: %w", userID, err)
	}
	got, err := strconv.ParseFloat(res, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse cart amount %q: %w", res, err)
	}
	return got, nil
}

func (s *cartStore) Get(ctx context.Context, userID string) (map[string]float64, error) {
	fields, err := s.rdb.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load cart %s: %w", userID, err)
	}
	items := make(map[string]float64, len(fields))
	for productID, raw := range fields {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse cart amount for %s: %w", productID, err)
		}
		items[productID] = amount
	}
	return items, nil
}

func (s *cartStore) Remove(ctx context.Context, userID, productID string) error {
	if err := s.rdb.HDel(ctx, cartKey(userID), productID).Err(); err != nil {
		return fmt.Errorf("failed to remove %s from cart %s: %w", productID, userID, err)
	}
	return nil
}

func (s *cartStore) Clear(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart %s: %w", userID, err)
	}
	return nil
}
