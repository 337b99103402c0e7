// Package pipeline implements the Single-URL Pipeline: cache check,
// navigation, a richness-probe-driven fallback ladder, cleaning, and
// format conversion for a single ConversionRequest.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/sf4ai-go/browser"
	"github.com/use-agent/sf4ai-go/cache"
	"github.com/use-agent/sf4ai-go/cleaner"
	"github.com/use-agent/sf4ai-go/cleaner/simhash"
	"github.com/use-agent/sf4ai-go/config"
	"github.com/use-agent/sf4ai-go/markdown"
	"github.com/use-agent/sf4ai-go/metadata"
	"github.com/use-agent/sf4ai-go/models"
)

// Pipeline wires the Browser Pool, Cache, Cleaner, Metadata Extractor, and
// Markdown Converter into the Single-URL Pipeline.
type Pipeline struct {
	pool *browser.Pool
	c    *cache.Cache
	md   *markdown.Converter

	scraperCfg  config.ScraperConfig
	cleaningCfg config.CleaningConfig
}

// New builds a Pipeline from its dependencies.
func New(pool *browser.Pool, c *cache.Cache, md *markdown.Converter, scraperCfg config.ScraperConfig, cleaningCfg config.CleaningConfig) *Pipeline {
	return &Pipeline{pool: pool, c: c, md: md, scraperCfg: scraperCfg, cleaningCfg: cleaningCfg}
}

// Run executes the full pipeline for one request: cache check, navigate,
// richness probe, fallback ladder if thin, clean, convert, cache write.
//
// Transient navigation/conversion errors (net::…, Navigation timeout,
// Protocol error) are retried up to scraperCfg.MaxRetries, each retry
// resuming at the fallback stage the previous attempt had already reached
// rather than re-probing cheaper stages known to be insufficient (spec.md
// §4.7/§7). On final exhaustion, a still-caching Cache gets one last
// emergency lookup before the error surfaces.
func (p *Pipeline) Run(ctx context.Context, req models.ConversionRequest) (*models.ConversionResult, error) {
	req.Defaults()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(req.Timeout)*time.Second)
	defer cancel()

	fp :=models.Fingerprint{URL: req.URL, OutputFormat: req.OutputFormat, ExtractMode: req.ExtractMode, CSSSelector: req.CSSSelector}

	if req.MaxAge >= 0 {
		if cached, ok := p.c.Get(ctx, fp); ok {
			result := *cached
			result.CacheStatus = "hit"
			result.Stage = -1
			return &result, nil
		}
	}

	var (
		result     *models.ConversionResult
		attemptErr error
		minStage   int
	)

	maxRetries := p.scraperCfg.MaxRetries
	for attempt := 0; attempt <= maxRetries; attempt++ {
		var reached int
		result, reached, attemptErr = p.attempt(ctx, req, fp, start, minStage)
		if attemptErr == nil {
			if req.MaxAge >= 0 {
				p.c.Set(ctx, fp, result)
			}
			return result, nil
		}
		if !isTransientError(attemptErr) || attempt == maxRetries {
			break
		}
		minStage = reached
		slog.Warn("pipeline: retrying after transient error", "url", req.URL,
			"attempt", attempt+1, "resume_stage", minStage, "error", attemptErr)
	}

	if req.MaxAge >= 0 && !p.c.Disabled() {
		if cached, ok := p.c.Get(ctx, fp); ok {
			result := *cached
			result.CacheStatus = "hit"
			result.Stage = -1
			slog.Warn("pipeline: serving cached artifact after retry exhaustion", "url", req.URL, "error", attemptErr)
			return &result, nil
		}
	}

	return nil, attemptErr
}

// attempt runs one full pass of navigate/escalate/clean/convert. minStage
// skips straight to that fallback stage's escalation instead of
// re-navigating and re-probing from scratch — how a retry preserves the
// ladder position a prior attempt already reached. Returns the stage
// reached so a caller retrying on a transient error can resume there.
func (p *Pipeline) attempt(ctx context.Context, req models.ConversionRequest, fp models.Fingerprint, start time.Time, minStage int) (*models.ConversionResult, int, error) {
	navStart := time.Now()

	page, err := p.pool.Acquire()
	if err != nil {
		return nil, minStage, err
	}
	activePage := page
	success := false
	defer func() { activePage.Release(success) }()

	var html, finalURL string
	stage := minStage

	switch {
	case minStage == 0:
		navOpts := browser.NavigateOptions{
			Stealth:              req.Stealth,
			BlockedResourceTypes: p.scraperCfg.BlockedResourceTypes,
		}
		navResult, err := activePage.Navigate(ctx, req.URL, navOpts)
		if err != nil {
			return nil, 0, err
		}
		html = navResult.RawHTML
		finalURL = navResult.FinalURL

		rich, textLen := p.richness(html)
		if !rich {
			// Stage 0: conditional scroll on the same page — cheapest escalation.
			prevFP := simhash.FingerprintDOM(html)
			activePage.Scroll(ctx, p.cleaningCfg.ScrollWaitTime)
			if h, err := activePage.HTML(); err == nil {
				html = h
			}
			newFP := simhash.FingerprintDOM(html)
			dist := simhash.Distance(prevFP, newFP)
			rich, textLen = p.richness(html)
			if rich && dist == 0 {
				// The scroll produced no DOM change at all, so crossing the
				// length floor here is measurement noise, not new content —
				// keep escalating rather than accepting this stage.
				rich = false
			}
			slog.Debug("richness probe", "stage", 0, "rich", rich, "text_len", textLen, "dom_distance", dist)
		}

		if !rich {
			html, finalURL, activePage, err = p.escalate(ctx, req, activePage, true)
			if err != nil {
				return nil, 1, err
			}
			stage = 1
			rich, textLen = p.richness(html)
			slog.Debug("richness probe", "stage", 1, "rich", rich, "text_len", textLen)
		}

		if !rich {
			html, finalURL, activePage, err = p.escalate(ctx, req, activePage, false)
			if err != nil {
				return nil, 2, err
			}
			stage = 2
			_, textLen = p.richness(html)
			slog.Debug("richness probe", "stage", 2, "accepted", true, "text_len", textLen)
		}

	case minStage == 1:
		html, finalURL, activePage, err = p.escalate(ctx, req, activePage, true)
		if err != nil {
			return nil, 1, err
		}
		stage = 1
		rich, textLen := p.richness(html)
		slog.Debug("richness probe", "stage", 1, "rich", rich, "text_len", textLen)
		if !rich {
			html, finalURL, activePage, err = p.escalate(ctx, req, activePage, false)
			if err != nil {
				return nil, 2, err
			}
			stage = 2
		}

	default: // minStage == 2
		html, finalURL, activePage, err = p.escalate(ctx, req, activePage, false)
		if err != nil {
			return nil, 2, err
		}
		stage = 2
	}

	success = true
	navMs := time.Since(navStart).Milliseconds()

	aggressiveCleaning := p.cleaningCfg.AggressiveCleaning
	if req.AggressiveCleaning != nil {
		aggressiveCleaning = *req.AggressiveCleaning
	}
	switch stage {
	case 1:
		aggressiveCleaning = true
	case 2:
		aggressiveCleaning = false
	}

	removeImages := p.cleaningCfg.RemoveImages
	if req.RemoveImages != nil {
		removeImages = *req.RemoveImages
	}

	cleanStart := time.Now()
	cleaned, err := cleaner.Clean(html, req.URL, req.ExtractMode, cleaner.Options{
		CSSSelector:        req.CSSSelector,
		AggressiveCleaning: aggressiveCleaning,
		RemoveImages:       removeImages,
	})
	if err != nil {
		return nil, stage, models.NewScrapeError(models.ErrCodeReadability, "content cleaning failed", err)
	}

	md := metadata.Extract(html, finalURL)
	if cleaned.Title != "" {
		md.Title = cleaned.Title
	}
	if cleaned.Byline != "" {
		md.Author = cleaned.Byline
	}
	if cleaned.SiteName != "" {
		md.SiteName = cleaned.SiteName
	}
	if cleaned.Language != "" {
		md.Language = cleaned.Language
	}

	content, err := p.convert(cleaned, req.OutputFormat, req.URL)
	if err != nil {
		return nil, stage, models.NewScrapeError(models.ErrCodeReadability, "format conversion failed", err)
	}
	cleanMs := time.Since(cleanStart).Milliseconds()

	originalTokens := cleaner.EstimateTokens(html)
	cleanedTokens := cleaner.EstimateTokens(content)
	savings := 0.0
	if originalTokens > 0 {
		savings = float64(originalTokens-cleanedTokens) / float64(originalTokens) * 100
	}

	cacheStatus := "miss"
	if p.c.Disabled() {
		cacheStatus = "disabled"
	}

	result := &models.ConversionResult{
		Success:     true,
		Content:     content,
		Metadata:    md,
		Tokens:      models.TokenInfo{OriginalEstimate: originalTokens, CleanedEstimate: cleanedTokens, SavingsPercent: savings},
		Timing:      models.TimingInfo{TotalMs: time.Since(start).Milliseconds(), NavigationMs: navMs, CleaningMs: cleanMs},
		CacheStatus: cacheStatus,
		Stage:       stage,
	}

	return result, stage, nil
}

// escalate discards the current page (its navigation already succeeded, so
// it is released as healthy) and runs a fresh navigation with forced scroll.
func (p *Pipeline) escalate(ctx context.Context, req models.ConversionRequest, current *browser.Page, aggressive bool) (string, string, *browser.Page, error) {
	current.Release(true)

	next, err := p.pool.Acquire()
	if err != nil {
		return "", "", current, err
	}

	nav, err := next.Navigate(ctx, req.URL, browser.NavigateOptions{
		Stealth:              req.Stealth,
		BlockedResourceTypes: p.scraperCfg.BlockedResourceTypes,
		ForceScroll:          true,
		ScrollWait:           p.cleaningCfg.ScrollWaitTime,
	})
	if err != nil {
		return "", "", next, err
	}
	_ = aggressive // cleaning-mode override is applied by the caller based on stage
	return nav.RawHTML, nav.FinalURL, next, nil
}

// richness applies the heuristic text-density floor: a document whose
// extracted text falls below MinContentLength is "thin".
func (p *Pipeline) richness(html string) (bool, int) {
	text := cleaner.PlainText(html)
	return len(text) >= p.cleaningCfg.MinContentLength, len(text)
}

func (p *Pipeline) convert(cleaned cleaner.Result, format, sourceURL string) (string, error) {
	switch format {
	case "html":
		return cleaned.Content, nil
	case "text":
		return cleaned.TextContent, nil
	case "markdown_citations":
		raw, err := p.md.ToMarkdown(cleaned.Content, sourceURL)
		if err != nil {
			return "", err
		}
		return markdown.ToCitations(raw), nil
	default: // "markdown"
		return p.md.ToMarkdown(cleaned.Content, sourceURL)
	}
}

// isTransientError reports whether err looks like a recoverable browser/
// network hiccup worth retrying, per spec.md §4.7's retry policy.
func isTransientError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "net::") ||
		strings.Contains(msg, "Navigation timeout") ||
		strings.Contains(msg, "Protocol error")
}
