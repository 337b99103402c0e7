package models

// ConversionResult is the response for POST /api/v1/scrape and the
// per-URL outcome stored in a job's report.
type ConversionResult struct {
	// Success indicates whether the conversion completed without errors.
	Success bool `json:"success"`

	// Content is the cleaned output in the requested format.
	Content string `json:"content,omitempty"`

	// Metadata contains extracted page metadata.
	Metadata Metadata `json:"metadata"`

	// Tokens provides token estimates before and after cleaning.
	Tokens TokenInfo `json:"tokens"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus is "hit", "miss", or "disabled".
	CacheStatus string `json:"cache_status,omitempty"`

	// Stage is the highest fallback-ladder stage that ran: 0 (no fallback
	// needed), 1, or 2. -1 when the result came from cache.
	Stage int `json:"stage"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// Metadata holds page-level information extracted by the Metadata Extractor.
//
// Title and Description fall back to their OpenGraph equivalents
// (og:title, og:description) whenever the canonical HTML source
// (<title>, <meta name="description">) is missing or empty; OGImage is
// read from og:image.
type Metadata struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	SiteName     string `json:"site_name,omitempty"`
	Author       string `json:"author,omitempty"`
	Language     string `json:"language,omitempty"`
	CanonicalURL string `json:"canonical_url,omitempty"`
	OGImage      string `json:"og_image,omitempty"`
	SourceURL    string `json:"source_url"`
}

// TokenInfo provides before/after token estimates to show cleaning efficacy.
type TokenInfo struct {
	OriginalEstimate int     `json:"original_estimate"`
	CleanedEstimate  int     `json:"cleaned_estimate"`
	SavingsPercent   float64 `json:"savings_percent"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	TotalMs      int64 `json:"total_ms"`
	NavigationMs int64 `json:"navigation_ms"`
	CleaningMs   int64 `json:"cleaning_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the Browser Pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
	BrowserPID  int `json:"browser_pid"`
}
