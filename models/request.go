package models

// ConversionRequest is the payload for POST /api/v1/scrape — a single-URL
// conversion through the pipeline.
type ConversionRequest struct {
	// URL is the target page. Required.
	URL string `json:"url" binding:"required,url"`

	// OutputFormat controls the response body format.
	// Allowed: "markdown" (default), "markdown_citations", "html", "text".
	OutputFormat string `json:"output_format,omitempty" binding:"omitempty,oneof=markdown markdown_citations html text"`

	// ExtractMode controls the content extraction strategy.
	// "readability" (default), "pruning", "raw", "auto".
	ExtractMode string `json:"extract_mode,omitempty" binding:"omitempty,oneof=readability pruning raw auto"`

	// AggressiveCleaning overrides the configured default for this request.
	AggressiveCleaning *bool `json:"aggressive_cleaning,omitempty"`

	// RemoveImages overrides the configured default for this request.
	RemoveImages *bool `json:"remove_images,omitempty"`

	// CSSSelector restricts cleaning/conversion to the matched subtree.
	CSSSelector string `json:"css_selector,omitempty"`

	// Timeout is the max duration in seconds for the whole pipeline run.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// Stealth enables anti-bot-detection evasions.
	Stealth bool `json:"stealth,omitempty"`

	// MaxAge controls cache use: a negative value bypasses the cache (no
	// read, no write); 0 or a positive value uses the cache with its own
	// TTL. A positive value is not compared against the artifact's age.
	MaxAge int `json:"max_age,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ConversionRequest) Defaults() {
	if r.OutputFormat == "" {
		r.OutputFormat = "markdown"
	}
	if r.ExtractMode == "" {
		r.ExtractMode = "readability"
	}
	if r.Timeout == 0 {
		r.Timeout = 30
	}
}

// Fingerprint is the cache lookup key's logical components, hashed by
// cache.Key into the physical key. CSSSelector is included because it
// scopes what the pipeline extracts — two requests for the same URL with
// different selectors are different artifacts (spec.md §4.1).
type Fingerprint struct {
	URL          string
	OutputFormat string
	ExtractMode  string
	CSSSelector  string
}
