// Package browser implements the Browser Pool: cheap, scoped page
// acquisition over a single long-lived headless Chrome instance, with
// health-scored retirement and memory-pressure-driven auto-scaling.
package browser

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/sf4ai-go/config"
	"github.com/use-agent/sf4ai-go/engine"
	"github.com/use-agent/sf4ai-go/models"
)

// Pool owns the browser process and hands out Pages backed by
// engine.AdaptivePool's health-scored handles.
type Pool struct {
	browser *rod.Browser
	ap      *engine.AdaptivePool

	mu    sync.Mutex
	pages map[int64]*rod.Page

	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
	active     atomic.Int32
}

// NewPool launches a headless Chrome instance (stealth launcher flags
// carried from the teacher's scraper.NewScraper) and wraps it in an
// AdaptivePool.
func NewPool(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig, apCfg config.AdaptivePoolConfig) (*Pool, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	rodBrowser := rod.New().ControlURL(controlURL)
	if err := rodBrowser.Connect(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	p := &Pool{
		browser:    rodBrowser,
		pages:      make(map[int64]*rod.Page),
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
	}

	factory := func() (int64, error) {
		page, err := rodBrowser.Page(proto.TargetCreateTarget{})
		if err != nil {
			return 0, err
		}
		id := time.Now().UnixNano()
		p.mu.Lock()
		for { // avoid a UnixNano collision from two rapid successive creates
			if _, exists := p.pages[id]; !exists {
				break
			}
			id++
		}
		p.pages[id] = page
		p.mu.Unlock()
		return id, nil
	}

	destroyer := func(id int64) {
		p.mu.Lock()
		page, ok := p.pages[id]
		delete(p.pages, id)
		p.mu.Unlock()
		if ok {
			_ = page.Close()
		}
	}

	ap, err := engine.NewAdaptivePool(engine.AdaptivePoolConfig{
		MinPages:     apCfg.MinPages,
		HardMax:      apCfg.HardMax,
		MemThreshold: apCfg.MemThreshold,
		ScaleStep:    apCfg.ScaleStep,
	}, factory, destroyer)
	if err != nil {
		return nil, err
	}
	p.ap = ap

	return p, nil
}

// Acquire borrows a Page from the pool. Release must be called exactly
// once (it is safe, but a no-op, to call it more than once).
func (p *Pool) Acquire() (*Page, error) {
	h, err := p.ap.Get()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to acquire page from pool", err)
	}
	p.mu.Lock()
	rodPage := p.pages[h.ID]
	p.mu.Unlock()

	p.active.Add(1)
	return &Page{rodPage: rodPage, handle: h, pool: p, cfg: p.scraperCfg}, nil
}

// Stats reports the pool's current utilization.
func (p *Pool) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    p.browserCfg.MaxPages,
		ActivePages: int(p.active.Load()),
	}
}

// Close drains the pool and kills the browser process.
func (p *Pool) Close() {
	slog.Info("browser pool shutting down")
	p.ap.Stop()
	p.browser.MustClose()
	slog.Info("browser pool shutdown complete")
}
