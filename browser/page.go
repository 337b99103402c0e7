package browser

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
	"github.com/use-agent/sf4ai-go/config"
	"github.com/use-agent/sf4ai-go/engine"
	"github.com/use-agent/sf4ai-go/models"
)

// Page is a scoped handle on one browser tab, acquired from Pool.
//
// Lifecycle ordering mirrors the original scraping code this is adapted
// from: stealth injection and resource hijacking MUST be installed before
// Navigate, since they only take effect for loads that start after they
// are mounted. Release is idempotent and safe to call from a defer even
// after an earlier explicit call or a panic recovery.
type Page struct {
	rodPage  *rod.Page
	handle   *engine.PageHandle
	pool     *Pool
	cfg      config.ScraperConfig
	released atomic.Bool
}

// NavigateOptions controls one Navigate call.
type NavigateOptions struct {
	Stealth              bool
	BlockedResourceTypes []string
	ForceScroll          bool
	ScrollWait           time.Duration
}

// Navigate loads url and returns the rendered HTML, title, status code and
// final URL. See the Page doc comment for why ordering matters here.
func (pg *Page) Navigate(ctx context.Context, url string, opts NavigateOptions) (*NavigateResult, error) {
	if opts.Stealth {
		if _, err := pg.rodPage.EvalOnNewDocument(stealth.JS); err != nil {
			// Stealth is best-effort; proceed unstealthed rather than fail the request.
			_ = err
		}
	}

	router := setupHijack(pg.rodPage, opts.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := pg.rodPage.Context(ctx)

	if err := p.Navigate(url); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}

	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		// Proceed with whatever DOM state we have; a non-converging page is
		// common on infinite-scroll sites and is not itself a failure.
		_ = err
	}

	if opts.ForceScroll {
		pg.scroll(p, opts.ScrollWait)
	}

	statusCode := pg.navigationStatus(p)

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	title := pg.evalString(p, `() => document.title`)
	finalURL := pg.evalString(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = url
	}

	return &NavigateResult{
		RawHTML:    rawHTML,
		Title:      title,
		StatusCode: statusCode,
		FinalURL:   finalURL,
	}, nil
}

// Scroll performs a conditional scroll pass: the fallback ladder's Stage 0.
// Unlike ForceScroll in NavigateOptions, this runs against the page's
// current state without a fresh navigation.
func (pg *Page) Scroll(ctx context.Context, wait time.Duration) {
	pg.scroll(pg.rodPage.Context(ctx), wait)
}

// HTML returns the page's current rendered HTML.
func (pg *Page) HTML() (string, error) {
	html, err := pg.rodPage.HTML()
	if err != nil {
		return "", categorizeError(err, "failed to extract page HTML")
	}
	return html, nil
}

func (pg *Page) scroll(p *rod.Page, wait time.Duration) {
	if wait <= 0 {
		wait = 1500 * time.Millisecond
	}
	const js = `async () => {
		const step = Math.max(window.innerHeight, 400);
		let last = -1;
		for (let i = 0; i < 20; i++) {
			window.scrollBy(0, step);
			await new Promise(r => setTimeout(r, 150));
			const h = document.body ? document.body.scrollHeight : 0;
			if (h === last) break;
			last = h;
		}
	}`
	_, _ = p.Eval(js)
	time.Sleep(wait)
}

func (pg *Page) navigationStatus(p *rod.Page) int {
	res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch (e) {}
		return 0;
	}`)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

func (pg *Page) evalString(p *rod.Page, js string) string {
	res, err := p.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// Release returns the page to the pool, recording success/failure for
// health scoring. Idempotent: a second call is a no-op, which closes the
// "page leaks on the fallback ladder" concern — every exit path on the
// ladder, including early returns and recovered panics, can defer Release
// unconditionally.
func (pg *Page) Release(success bool) {
	if !pg.released.CompareAndSwap(false, true) {
		return
	}
	pg.pool.active.Add(-1)
	_ = pg.rodPage.Navigate("about:blank")
	pg.pool.ap.Put(pg.handle, success)
}

func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
