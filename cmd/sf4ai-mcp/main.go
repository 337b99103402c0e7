// Command sf4ai-mcp exposes the Single-URL Pipeline and Job Orchestrator as
// MCP tools over stdio, calling the in-process packages directly rather
// than proxying an HTTP API — this process launches its own Browser Pool.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/sf4ai-go/browser"
	"github.com/use-agent/sf4ai-go/cache"
	"github.com/use-agent/sf4ai-go/config"
	"github.com/use-agent/sf4ai-go/jobs"
	"github.com/use-agent/sf4ai-go/markdown"
	"github.com/use-agent/sf4ai-go/models"
	"github.com/use-agent/sf4ai-go/pipeline"
)

func main() {
	cfg := config.Load()

	pool, err := browser.NewPool(cfg.Browser, cfg.Scraper, cfg.AdaptivePool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise browser pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	cc := cache.New(cfg.Cache)
	md := markdown.New()
	p := pipeline.New(pool, cc, md, cfg.Scraper, cfg.Cleaning)
	orch := jobs.New(p, cfg.Jobs)

	s := server.NewMCPServer("sf4ai", "1.0.0", server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("scrape_url",
		mcp.WithDescription("Convert a single web page to cleaned Markdown (or HTML/text). Renders JavaScript via a headless browser and escalates through a scroll/re-render fallback ladder when the page looks thin."),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL of the web page to convert")),
		mcp.WithString("output_format",
			mcp.Description("'markdown' (default), 'markdown_citations', 'html', or 'text'"),
			mcp.Enum("markdown", "markdown_citations", "html", "text"),
		),
		mcp.WithString("extract_mode",
			mcp.Description("'readability' (default), 'pruning', 'raw', or 'auto'"),
			mcp.Enum("readability", "pruning", "raw", "auto"),
		),
	), handleScrapeURL(p))

	s.AddTool(mcp.NewTool("create_job",
		mcp.WithDescription("Launch a background job converting many URLs: a sitemap, a literal URL list, or a one-level crawl of a start page. Returns a job ID immediately; poll job_status for progress."),
		mcp.WithString("source", mcp.Required(), mcp.Enum("sitemap", "url_list", "crawl")),
		mcp.WithString("sitemap_url", mcp.Description("Required when source is 'sitemap'")),
		mcp.WithArray("urls", mcp.Description("Required when source is 'url_list'")),
		mcp.WithString("start_url", mcp.Description("Required when source is 'crawl'")),
	), handleCreateJob(orch))

	s.AddTool(mcp.NewTool("job_status",
		mcp.WithDescription("Check a job's progress and, once terminal, its per-URL results."),
		mcp.WithString("job_id", mcp.Required()),
	), handleJobStatus(orch))

	s.AddTool(mcp.NewTool("cancel_job",
		mcp.WithDescription("Request cancellation of a running job. Cooperative: in-flight URLs in the current batch still complete."),
		mcp.WithString("job_id", mcp.Required()),
	), handleCancelJob(orch))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleScrapeURL(p *pipeline.Pipeline) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		req := models.ConversionRequest{
			URL:          url,
			OutputFormat: request.GetString("output_format", ""),
			ExtractMode:  request.GetString("extract_mode", ""),
		}
		req.Defaults()

		runCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
		defer cancel()

		result, err := p.Run(runCtx, req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("conversion failed: %v", err)), nil
		}

		text := fmt.Sprintf("Title: %s\nSource: %s\n\n%s", result.Metadata.Title, result.Metadata.SourceURL, result.Content)
		text += fmt.Sprintf("\n\n---\nTokens: %d (saved %.0f%% from original %d)",
			result.Tokens.CleanedEstimate, result.Tokens.SavingsPercent, result.Tokens.OriginalEstimate)

		return mcp.NewToolResultText(text), nil
	}
}

func handleCreateJob(o *jobs.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		source, err := request.RequireString("source")
		if err != nil {
			return mcp.NewToolResultError("source is required"), nil
		}

		req := models.JobRequest{Source: models.JobSourceKind(source)}
		req.SitemapURL = request.GetString("sitemap_url", "")
		req.StartURL = request.GetString("start_url", "")
		if urls, err := request.RequireStringSlice("urls"); err == nil {
			req.URLs = urls
		}
		req.Options.Defaults()

		job, err := o.Submit(req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("job submission failed: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("job %s created, status=%s", job.ID, job.Status)), nil
	}
}

func handleJobStatus(o *jobs.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("job_id")
		if err != nil {
			return mcp.NewToolResultError("job_id is required"), nil
		}

		job, ok := o.Status(id)
		if !ok {
			return mcp.NewToolResultError("job not found"), nil
		}

		summary := struct {
			ID        string `json:"id"`
			Status    string `json:"status"`
			Total     int    `json:"total"`
			Succeeded int    `json:"succeeded"`
			Failed    int    `json:"failed"`
		}{string(job.ID), string(job.Status), job.Total, job.Succeeded, job.Failed}

		data, _ := json.MarshalIndent(summary, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	}
}

func handleCancelJob(o *jobs.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("job_id")
		if err != nil {
			return mcp.NewToolResultError("job_id is required"), nil
		}

		if !o.Cancel(id) {
			return mcp.NewToolResultError("job not found"), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("job %s cancellation requested", id)), nil
	}
}
