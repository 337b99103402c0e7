package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTier is the shared tier of the cache, usable either as a locally
// managed Redis (USE_REDIS=true, host/port/password/db) or an externally
// managed instance (EXTERNAL_REDIS_URL set, parsed as a connection URL).
type RedisTier struct {
	client *redis.Client
}

// NewRedisTier connects to host:port with the given password/db.
func NewRedisTier(host string, port int, password string, db int) *RedisTier {
	return &RedisTier{client: redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})}
}

// NewRedisTierFromURL connects using a redis:// or rediss:// URL, for an
// externally managed Redis instance.
func NewRedisTierFromURL(rawURL string) (*RedisTier, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse EXTERNAL_REDIS_URL: %w", err)
	}
	return &RedisTier{client: redis.NewClient(opts)}, nil
}

func (t *RedisTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := t.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores value under key with ttl interpreted in seconds (spec.md §9 —
// this tier's TTL unit differs from LRUTier's by design).
func (t *RedisTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return t.client.Set(ctx, key, value, ttl).Err()
}

func (t *RedisTier) Close() error {
	return t.client.Close()
}
