package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Browser      BrowserConfig
	Scraper      ScraperConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Cache        CacheConfig
	Log          LogConfig
	AdaptivePool AdaptivePoolConfig
	Cleaning     CleaningConfig
	Jobs         JobsConfig
	Rules        RulesConfig
}

// CleaningConfig controls default cleaning behavior (spec.md §6).
type CleaningConfig struct {
	MinContentLength   int           // MIN_CONTENT_LENGTH, default: 200
	ScrollWaitTime     time.Duration // SCROLL_WAIT_TIME, default: 1500ms
	AggressiveCleaning bool          // AGGRESSIVE_CLEANING, default: false
	RemoveImages       bool          // REMOVE_IMAGES, default: false
}

// JobsConfig controls the Job Orchestrator.
type JobsConfig struct {
	DefaultMaxConcurrent   int           // DEFAULT_MAX_CONCURRENT, default: 5
	DefaultBatchSize       int           // DEFAULT_BATCH_SIZE, default: 20
	DefaultProcessingDelay time.Duration // DEFAULT_PROCESSING_DELAY, default: 100ms
	DefaultRetryCount      int           // DEFAULT_RETRY_COUNT — per-URL outer retries, default: 2
	DefaultRetryDelay      time.Duration // DEFAULT_RETRY_DELAY — between outer retries, default: 3000ms
	ReportsDir             string        // directory for reports/{jobId}.json, default: "reports"
	SitemapMaxDepth        int           // sitemap-index recursion cap, default: 5
	SitemapMaxConcurrent   int           // ≤5 concurrent sub-fetches, default: 5
	DefaultMaxCrawlLinks   int           // cap on links enumerated by a one-level crawl job, default: 100
}

// RulesConfig controls the Rules Store loader.
type RulesConfig struct {
	RulesFile string // RULES_FILE, empty means "use embedded defaults"
}

// AdaptivePoolConfig controls the adaptive Browser Pool sizing.
type AdaptivePoolConfig struct {
	MinPages     int
	HardMax      int
	MemThreshold float64
	ScaleStep    float64
}

// CacheConfig controls the two-tier cache (spec.md §4.1, §6).
type CacheConfig struct {
	DisableAllCaching bool // DISABLE_ALL_CACHING, master switch

	UseRedis         bool          // USE_REDIS
	RedisHost        string        // REDIS_HOST
	RedisPort        int           // REDIS_PORT
	RedisPassword    string        // REDIS_PASSWORD
	RedisDB          int           // REDIS_DB
	ExternalRedisURL string        // EXTERNAL_REDIS_URL, overrides host/port/password/db when set
	RedisCacheTTL    time.Duration // REDIS_CACHE_TTL, seconds

	LRUMaxEntries int           // CACHE_MAX_ENTRIES
	LRUCacheTTL   time.Duration // LRU_CACHE_TTL, milliseconds
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string
	Port int
	Mode string
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	Headless     bool
	MaxPages     int
	DefaultProxy string
	NoSandbox    bool
	BrowserBin   string
}

// ScraperConfig controls page-fetch behavior.
type ScraperConfig struct {
	DefaultTimeout       time.Duration
	MaxTimeout           time.Duration
	NavigationTimeout    time.Duration
	PageTimeout          time.Duration // PAGE_TIMEOUT
	BlockedResourceTypes []string
	MaxRetries           int // MAX_RETRIES — in-pipeline transient-error retries, default: 2
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with sane defaults,
// using the variable names spec.md §6 specifies.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("HOST", "0.0.0.0"),
			Port: envIntOr("PORT", 8080),
			Mode: envOr("MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("HEADLESS", true),
			MaxPages:     envIntOr("MAX_PAGES", 10),
			DefaultProxy: os.Getenv("PROXY"),
			NoSandbox:    envBoolOr("NO_SANDBOX", false),
			BrowserBin:   os.Getenv("BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			DefaultTimeout:    envDurationOr("DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:        envDurationOr("MAX_TIMEOUT", 120*time.Second),
			NavigationTimeout: envDurationOr("NAV_TIMEOUT", 15*time.Second),
			PageTimeout:       envDurationOr("PAGE_TIMEOUT", 30*time.Second),
			BlockedResourceTypes: envSliceOr("BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			MaxRetries: envIntOr("MAX_RETRIES", 2),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("AUTH_ENABLED", true),
			APIKeys: envSliceOr("API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("RATE_RPS", 5.0),
			Burst:             envIntOr("RATE_BURST", 10),
		},
		Cache: CacheConfig{
			DisableAllCaching: envBoolOr("DISABLE_ALL_CACHING", false),
			UseRedis:          envBoolOr("USE_REDIS", false),
			RedisHost:         envOr("REDIS_HOST", "localhost"),
			RedisPort:         envIntOr("REDIS_PORT", 6379),
			RedisPassword:     os.Getenv("REDIS_PASSWORD"),
			RedisDB:           envIntOr("REDIS_DB", 0),
			ExternalRedisURL:  os.Getenv("EXTERNAL_REDIS_URL"),
			RedisCacheTTL:     time.Duration(envIntOr("REDIS_CACHE_TTL", 86400)) * time.Second,
			LRUMaxEntries:     envIntOr("CACHE_MAX_ENTRIES", 1000),
			LRUCacheTTL:       time.Duration(envIntOr("LRU_CACHE_TTL", 3600000)) * time.Millisecond,
		},
		Log: LogConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
		AdaptivePool: AdaptivePoolConfig{
			MinPages:     envIntOr("MIN_PAGES", 3),
			HardMax:      envIntOr("HARD_MAX_PAGES", 20),
			MemThreshold: envFloatOr("MEM_THRESHOLD", 0.9),
			ScaleStep:    envFloatOr("SCALE_STEP", 0.05),
		},
		Cleaning: CleaningConfig{
			MinContentLength:   envIntOr("MIN_CONTENT_LENGTH", 200),
			ScrollWaitTime:     envDurationOr("SCROLL_WAIT_TIME", 1500*time.Millisecond),
			AggressiveCleaning: envBoolOr("AGGRESSIVE_CLEANING", false),
			RemoveImages:       envBoolOr("REMOVE_IMAGES", false),
		},
		Jobs: JobsConfig{
			DefaultMaxConcurrent:   envIntOr("DEFAULT_MAX_CONCURRENT", 5),
			DefaultBatchSize:       envIntOr("DEFAULT_BATCH_SIZE", 20),
			DefaultProcessingDelay: envDurationOr("DEFAULT_PROCESSING_DELAY", 100*time.Millisecond),
			DefaultRetryCount:      envIntOr("DEFAULT_RETRY_COUNT", 2),
			DefaultRetryDelay:      envDurationOr("DEFAULT_RETRY_DELAY", 3000*time.Millisecond),
			ReportsDir:             envOr("REPORTS_DIR", "reports"),
			SitemapMaxDepth:        envIntOr("SITEMAP_MAX_DEPTH", 5),
			SitemapMaxConcurrent:   envIntOr("SITEMAP_MAX_CONCURRENT", 5),
			DefaultMaxCrawlLinks:   envIntOr("DEFAULT_MAX_CRAWL_LINKS", 100),
		},
		Rules: RulesConfig{
			RulesFile: os.Getenv("RULES_FILE"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
