package cache

import (
	"context"
	"testing"
	"time"

	"github.com/use-agent/sf4ai-go/config"
	"github.com/use-agent/sf4ai-go/models"
)

func TestCacheRoundTrip(t *testing.T) {
	c := New(config.CacheConfig{LRUMaxEntries: 10, LRUCacheTTL: time.Minute})
	defer c.Close()

	fp := models.Fingerprint{URL: "https://example.com", OutputFormat: "markdown", ExtractMode: "readability"}
	result := &models.ConversionResult{Success: true, Content: "# Example"}

	if _, ok := c.Get(context.Background(), fp); ok {
		t.Fatal("expected miss before Set")
	}

	c.Set(context.Background(), fp, result)

	got, ok := c.Get(context.Background(), fp)
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got.Content != result.Content {
		t.Fatalf("content mismatch: got %q", got.Content)
	}
}

func TestCacheMasterSwitchDisablesEverything(t *testing.T) {
	c := New(config.CacheConfig{DisableAllCaching: true, LRUMaxEntries: 10})
	defer c.Close()

	fp := models.Fingerprint{URL: "https://example.com"}
	c.Set(context.Background(), fp, &models.ConversionResult{Success: true})

	if _, ok := c.Get(context.Background(), fp); ok {
		t.Fatal("master switch must force every lookup to miss")
	}
}

// TestTTLUnitMismatchIsIntentional documents that the shared tier's TTL is
// seconds (RedisCacheTTL) and the local tier's is milliseconds
// (LRUCacheTTL) — see spec.md §9. This is not a bug to fix.
func TestTTLUnitMismatchIsIntentional(t *testing.T) {
	cfg := config.CacheConfig{RedisCacheTTL: 86400 * time.Second, LRUCacheTTL: 3600000 * time.Millisecond}
	if cfg.RedisCacheTTL != 24*time.Hour {
		t.Fatalf("expected shared TTL interpreted in seconds, got %v", cfg.RedisCacheTTL)
	}
	if cfg.LRUCacheTTL != time.Hour {
		t.Fatalf("expected local TTL interpreted in milliseconds, got %v", cfg.LRUCacheTTL)
	}
}
