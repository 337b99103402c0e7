package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/use-agent/sf4ai-go/config"
	"github.com/use-agent/sf4ai-go/models"
)

// Cache composes a shared tier and an in-process tier behind the master
// switch (spec.md §4.1): when disabled, every method is a no-op miss
// regardless of how the tiers are configured.
type Cache struct {
	disabled bool
	shared   Tier // nil when USE_REDIS/EXTERNAL_REDIS_URL are unset
	local    Tier // nil only if construction failed; normally always present

	sharedTTL time.Duration
	localTTL  time.Duration
}

// New builds a Cache from config, wiring RedisTier and/or LRUTier per the
// configured mode. Redis connection errors are logged but never fatal —
// the cache degrades to LRU-only rather than blocking startup.
func New(cfg config.CacheConfig) *Cache {
	c := &Cache{
		disabled:  cfg.DisableAllCaching,
		sharedTTL: cfg.RedisCacheTTL,
		localTTL:  cfg.LRUCacheTTL,
		local:     NewLRUTier(cfg.LRUMaxEntries),
	}

	switch {
	case cfg.ExternalRedisURL != "":
		tier, err := NewRedisTierFromURL(cfg.ExternalRedisURL)
		if err != nil {
			slog.Warn("cache: external redis unavailable, falling back to LRU only", "error", err)
			break
		}
		c.shared = tier
	case cfg.UseRedis:
		c.shared = NewRedisTier(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB)
	}

	return c
}

// Get looks up a conversion result by fingerprint. The shared tier is
// checked first, then the local tier; freshness is left to each tier's own
// expiry, so a hit from either is returned.
func (c *Cache) Get(ctx context.Context, fp models.Fingerprint) (*models.ConversionResult, bool) {
	if c.disabled {
		return nil, false
	}

	key := Key(fp)

	if c.shared != nil {
		if raw, ok, err := c.shared.Get(ctx, key); err == nil && ok {
			var result models.ConversionResult
			if json.Unmarshal(raw, &result) == nil {
				return &result, true
			}
		}
	}

	if raw, ok, err := c.local.Get(ctx, key); err == nil && ok {
		var result models.ConversionResult
		if json.Unmarshal(raw, &result) == nil {
			return &result, true
		}
	}

	return nil, false
}

// Set writes result to every configured tier, passing each tier its own
// configured TTL (REDIS_CACHE_TTL to the shared tier, LRU_CACHE_TTL to the
// local tier). LRUTier ignores the TTL it is given; see its Set.
func (c *Cache) Set(ctx context.Context, fp models.Fingerprint, result *models.ConversionResult) {
	if c.disabled {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		slog.Warn("cache: marshal result", "error", err)
		return
	}
	key := Key(fp)

	if c.shared != nil {
		if err := c.shared.Set(ctx, key, raw, c.sharedTTL); err != nil {
			slog.Warn("cache: shared tier write failed", "error", err)
		}
	}
	if err := c.local.Set(ctx, key, raw, c.localTTL); err != nil {
		slog.Warn("cache: local tier write failed", "error", err)
	}
}

// Disabled reports whether the master switch has turned caching off.
func (c *Cache) Disabled() bool {
	return c.disabled
}

// Close releases tier resources (e.g. the Redis client connection pool).
func (c *Cache) Close() error {
	if c.shared != nil {
		_ = c.shared.Close()
	}
	return c.local.Close()
}
