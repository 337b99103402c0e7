package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/use-agent/sf4ai-go/models"
)

// Tier is one layer of the two-tier cache. Both the shared Redis tier and
// the in-process LRU tier satisfy it, so either can back Cache without the
// composing logic changing — the cache-tier-interchangeability invariant.
type Tier interface {
	Get(ctx context.Context, key string) (entry []byte, ok bool, err error)
	Set(ctx context.Context, key string, entry []byte, ttl time.Duration) error
	Close() error
}

// Key derives the physical cache key from a request's logical fingerprint.
func Key(fp models.Fingerprint) string {
	h := sha256.New()
	h.Write([]byte(fp.URL))
	h.Write([]byte("|"))
	h.Write([]byte(fp.OutputFormat))
	h.Write([]byte("|"))
	h.Write([]byte(fp.ExtractMode))
	h.Write([]byte("|"))
	h.Write([]byte(fp.CSSSelector))
	return hex.EncodeToString(h.Sum(nil))
}
