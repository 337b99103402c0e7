// Package jobs implements the Job Orchestrator: URL enumeration (sitemap
// or literal list), batched bounded-concurrency conversion, persisted
// reports, progress/completion webhooks, and count-closure reconciliation.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/sf4ai-go/config"
	"github.com/use-agent/sf4ai-go/models"
	"github.com/use-agent/sf4ai-go/webhook"
	"github.com/use-agent/sf4ai-go/workerpool"
)

// Converter runs the Single-URL Pipeline for one request. Satisfied by
// *pipeline.Pipeline; an interface here keeps the orchestrator testable
// without a real Browser Pool.
type Converter interface {
	Run(ctx context.Context, req models.ConversionRequest) (*models.ConversionResult, error)
}

// Orchestrator owns all in-flight and completed jobs.
type Orchestrator struct {
	conv Converter
	cfg  config.JobsConfig

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	job    *models.Job
	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds an Orchestrator.
func New(conv Converter, cfg config.JobsConfig) *Orchestrator {
	return &Orchestrator{conv: conv, cfg: cfg, entries: make(map[string]*entry)}
}

// Submit enumerates URLs for req and launches the job in the background,
// returning its ID immediately.
func (o *Orchestrator) Submit(req models.JobRequest) (*models.Job, error) {
	id := uuid.NewString()
	now := time.Now().Unix()

	job := &models.Job{
		ID:        id,
		Status:    models.JobStatusProcessing,
		Source:    req.Source,
		CreatedAt: now,
		UpdatedAt: now,
		StartedAt: now,
		URLs:      make(map[string]*models.URLState),
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{job: job, cancel: cancel}

	o.mu.Lock()
	o.entries[id] = e
	o.mu.Unlock()

	go o.run(ctx, e, req)

	return job, nil
}

// Status returns the current snapshot of a job.
func (o *Orchestrator) Status(id string) (*models.Job, bool) {
	o.mu.Lock()
	e, ok := o.entries[id]
	o.mu.Unlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneJob(e.job), true
}

// Cancel requests that job id stop starting new batches. In-flight work in
// the current batch always finishes — cancellation is checked at batch
// boundaries only.
func (o *Orchestrator) Cancel(id string) bool {
	o.mu.Lock()
	e, ok := o.entries[id]
	o.mu.Unlock()
	if !ok {
		return false
	}
	e.cancel()
	return true
}

func (o *Orchestrator) run(ctx context.Context, e *entry, req models.JobRequest) {
	urls, err := o.enumerate(ctx, req)
	if err != nil {
		e.mu.Lock()
		e.job.Status = models.JobStatusFailed
		e.job.UpdatedAt = time.Now().Unix()
		e.mu.Unlock()
		slog.Error("job enumeration failed", "id", e.job.ID, "error", err)
		return
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = o.cfg.DefaultBatchSize
	}
	maxConcurrent := req.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = o.cfg.DefaultMaxConcurrent
	}
	totalBatches := (len(urls) + batchSize - 1) / batchSize

	e.mu.Lock()
	e.job.Total = len(urls)
	e.job.TotalBatches = totalBatches
	e.mu.Unlock()

	cancelled := false
	batchNum := 0
	for start := 0; start < len(urls); start += batchSize {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		batchNum++

		end := start + batchSize
		if end > len(urls) {
			end = len(urls)
		}
		batch := urls[start:end]

		// At-most-once: skip any URL this job has already recorded an
		// outcome for (spec.md §4.8) — belt-and-suspenders alongside
		// enumeration-time dedup, since a retry path could otherwise
		// reprocess a URL another batch already settled.
		e.mu.Lock()
		pending := batch[:0:0]
		for _, u := range batch {
			if _, done := e.job.URLs[u]; !done {
				pending = append(pending, u)
			}
		}
		e.mu.Unlock()

		// The batch runs detached from cancellation so that a Cancel lets
		// the current batch finish; ctx is only checked between batches.
		results := workerpool.Run(context.WithoutCancel(ctx), pending, maxConcurrent, func(ctx context.Context, u string) (*models.ConversionResult, error) {
			return o.convertWithRetry(ctx, u, req.Options)
		})

		e.mu.Lock()
		for i, r := range results {
			state := &models.URLState{URL: pending[i]}
			if r.Err != nil {
				state.Outcome = models.URLOutcomeFailed
				e.job.Failed++
			} else {
				state.Outcome = models.URLOutcomeSucceeded
				state.Result = r.Value
				e.job.Succeeded++
			}
			e.job.URLs[pending[i]] = state
		}
		e.job.CurrentBatch = batchNum
		e.job.UpdatedAt = time.Now().Unix()
		snapshot := cloneJob(e.job)
		e.mu.Unlock()

		o.persist(snapshot)
		o.notifyProgress(req.Webhook, snapshot)

		if o.cfg.DefaultProcessingDelay > 0 && end < len(urls) {
			time.Sleep(o.cfg.DefaultProcessingDelay)
		}
	}

	e.mu.Lock()
	if !cancelled {
		for _, u := range urls {
			if _, ok := e.job.URLs[u]; !ok {
				e.job.URLs[u] = &models.URLState{
					URL:     u,
					Outcome: models.URLOutcomeFailed,
					Result: &models.ConversionResult{
						Success: false,
						Error:   &models.ErrorDetail{Code: models.ErrCodeSkippedURL, Message: "URL was skipped during processing"},
					},
				}
				e.job.Failed++
			}
		}
	}

	switch {
	case cancelled:
		e.job.Status = models.JobStatusCancelled
	case e.job.Failed == e.job.Total && e.job.Total > 0:
		e.job.Status = models.JobStatusFailed
	case e.job.Failed > 0:
		e.job.Status = models.JobStatusPartial
	default:
		e.job.Status = models.JobStatusCompleted
	}
	now := time.Now()
	e.job.UpdatedAt = now.Unix()
	e.job.EndedAt = now.Unix()
	snapshot := cloneJob(e.job)
	e.mu.Unlock()

	o.persist(snapshot)

	// Cancellation never sends a final webhook (spec.md §4.8): the caller
	// already knows, having just requested the cancellation.
	if !cancelled {
		o.notifyCompleted(req.Webhook, snapshot)
	}
}

func (o *Orchestrator) enumerate(ctx context.Context, req models.JobRequest) ([]string, error) {
	switch req.Source {
	case models.JobSourceSitemap:
		return enumerateSitemap(ctx, req.SitemapURL, o.cfg.SitemapMaxDepth, o.cfg.SitemapMaxConcurrent)
	case models.JobSourceCrawl:
		maxLinks := req.MaxLinks
		if maxLinks <= 0 {
			maxLinks = o.cfg.DefaultMaxCrawlLinks
		}
		return enumerateCrawl(ctx, o.conv, req.StartURL, maxLinks)
	default:
		return dedupeURLs(req.URLs), nil
	}
}

func (o *Orchestrator) convertWithRetry(ctx context.Context, u string, opts models.ConversionRequest) (*models.ConversionResult, error) {
	reqCopy := opts
	reqCopy.URL = u

	var lastErr error
	for attempt := 0; attempt <= o.cfg.DefaultRetryCount; attempt++ {
		result, err := o.conv.Run(ctx, reqCopy)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt < o.cfg.DefaultRetryCount {
			time.Sleep(o.cfg.DefaultRetryDelay)
		}
	}
	return nil, lastErr
}

// persist writes job to reports/{id}.json via a temp-file-then-rename so a
// reader never observes a partially written report. Returns the path.
func (o *Orchestrator) persist(job *models.Job) string {
	dir := o.cfg.ReportsDir
	if dir == "" {
		dir = "reports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("jobs: failed to create reports dir", "dir", dir, "error", err)
		return ""
	}

	path := filepath.Join(dir, job.ID+".json")
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		slog.Warn("jobs: failed to marshal report", "id", job.ID, "error", err)
		return path
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		slog.Warn("jobs: failed to write report", "id", job.ID, "error", err)
		return path
	}
	if err := os.Rename(tmp, path); err != nil {
		slog.Warn("jobs: failed to finalize report", "id", job.ID, "error", err)
	}
	return path
}

func (o *Orchestrator) notifyProgress(spec *models.WebhookSpec, job *models.Job) {
	if spec == nil || !spec.ProgressUpdates {
		return
	}

	processed := job.Succeeded + job.Failed
	percentage := 0.0
	if job.Total > 0 {
		percentage = float64(processed) / float64(job.Total) * 100
	}

	webhook.PostProgress(spec.URL, spec.Secret, spec.Headers, spec.ExtraFields, job.ID, webhook.Progress{
		Processed:  processed,
		Total:      job.Total,
		Percentage: percentage,
		Success:    job.Succeeded,
		Failed:     job.Failed,
		Batch:      webhook.BatchProgress{Current: job.CurrentBatch, Total: job.TotalBatches},
	})
}

func (o *Orchestrator) notifyCompleted(spec *models.WebhookSpec, job *models.Job) {
	if spec == nil {
		return
	}

	var results webhook.Results
	for _, u := range job.URLs {
		switch u.Outcome {
		case models.URLOutcomeSucceeded:
			md := u.Result.Content
			results.Successful = append(results.Successful, webhook.ResultItem{
				URL: u.URL, Status: "success", Markdown: &md, Timestamp: time.Now().Unix(), Metadata: u.Result.Metadata,
			})
		default:
			msg := "unknown error"
			if u.Result != nil && u.Result.Error != nil {
				msg = u.Result.Error.Message
			}
			results.Failed = append(results.Failed, webhook.ResultItem{
				URL: u.URL, Status: "failed", Error: &msg, Timestamp: time.Now().Unix(),
			})
		}
	}

	summary := webhook.Summary{
		Total:          job.Total,
		Processed:      job.Succeeded + job.Failed,
		Successful:     job.Succeeded,
		Failed:         job.Failed,
		ProcessingTime: job.EndedAt - job.StartedAt,
	}

	webhook.PostCompleted(spec.URL, spec.Secret, spec.Headers, spec.ExtraFields, job.ID, string(job.Status), summary, results)
}

// cloneJob returns a shallow copy of job with its own URLs map, so the
// caller can release the entry lock before the (possibly slow) persist and
// webhook calls without racing the next batch's writes.
func cloneJob(job *models.Job) *models.Job {
	clone := *job
	clone.URLs = make(map[string]*models.URLState, len(job.URLs))
	for k, v := range job.URLs {
		clone.URLs[k] = v
	}
	return &clone
}
