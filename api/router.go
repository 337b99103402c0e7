package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sf4ai-go/api/handler"
	"github.com/use-agent/sf4ai-go/api/middleware"
	"github.com/use-agent/sf4ai-go/browser"
	"github.com/use-agent/sf4ai-go/config"
	"github.com/use-agent/sf4ai-go/jobs"
	"github.com/use-agent/sf4ai-go/pipeline"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(pool *browser.Pool, p *pipeline.Pipeline, o *jobs.Orchestrator, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(pool, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Scrape — the Single-URL Pipeline.
	protected.POST("/scrape", handler.Scrape(p))

	// Jobs — the Job Orchestrator (sitemap / url_list / one-level crawl).
	protected.POST("/jobs", handler.PostJob(o))
	protected.GET("/jobs/:id", handler.GetJob(o))
	protected.POST("/jobs/:id/cancel", handler.CancelJob(o))

	return r
}
