package models

// JobSourceKind selects how a job's URL set is enumerated.
type JobSourceKind string

const (
	JobSourceSitemap JobSourceKind = "sitemap"
	JobSourceURLList JobSourceKind = "url_list"

	// JobSourceCrawl enumerates by fetching StartURL and following its
	// same-host links one level deep (spec.md §1's "optional one-level
	// crawl of a start page" — never recurses further).
	JobSourceCrawl JobSourceKind = "crawl"
)

// JobRequest is the payload for POST /api/v1/jobs.
type JobRequest struct {
	// Source selects enumeration strategy. Required.
	Source JobSourceKind `json:"source" binding:"required,oneof=sitemap url_list crawl"`

	// SitemapURL is the sitemap (or sitemap-index) URL. Required when
	// Source is "sitemap".
	SitemapURL string `json:"sitemap_url,omitempty"`

	// URLs is the literal URL list. Required when Source is "url_list".
	URLs []string `json:"urls,omitempty"`

	// StartURL is the page to crawl one level from. Required when Source
	// is "crawl".
	StartURL string `json:"start_url,omitempty"`

	// MaxLinks caps how many URLs the crawl enumerates, StartURL included.
	// 0 means DefaultMaxCrawlLinks.
	MaxLinks int `json:"max_links,omitempty"`

	// Options are the conversion options applied to every URL in the job.
	Options ConversionRequest `json:"options"`

	// BatchSize overrides DEFAULT_BATCH_SIZE for this job.
	BatchSize int `json:"batch_size,omitempty"`

	// MaxConcurrent overrides DEFAULT_MAX_CONCURRENT for this job.
	MaxConcurrent int `json:"max_concurrent,omitempty"`

	// Webhook, if set, receives progress and completion events.
	Webhook *WebhookSpec `json:"webhook,omitempty"`
}

// WebhookSpec describes where and how to deliver job webhooks.
type WebhookSpec struct {
	URL    string `json:"url" binding:"required,url"`
	Secret string `json:"secret,omitempty"`

	// Headers are merged into every webhook POST's header set.
	Headers map[string]string `json:"headers,omitempty"`

	// ExtraFields are merged verbatim into the top level of every webhook
	// payload (spec.md §6).
	ExtraFields map[string]any `json:"extra_fields,omitempty"`

	// ProgressUpdates gates whether a webhook fires after every batch, or
	// only once at job completion.
	ProgressUpdates bool `json:"progress_updates,omitempty"`
}

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusPartial    JobStatus = "partial"
	JobStatusCancelled  JobStatus = "cancelled"
)

// URLOutcome is the terminal state of one URL within a job.
type URLOutcome string

const (
	URLOutcomePending   URLOutcome = "pending"
	URLOutcomeSucceeded URLOutcome = "succeeded"
	URLOutcomeFailed    URLOutcome = "failed"
)

// URLState is one URL's tracked progress within a job, the unit the
// reconciliation pass operates over.
type URLState struct {
	URL     string             `json:"url"`
	Outcome URLOutcome         `json:"outcome"`
	Result  *ConversionResult  `json:"result,omitempty"`
}

// Job is the orchestrator's in-memory and persisted record of one
// enumerate-batch-convert run.
type Job struct {
	ID           string               `json:"id"`
	Status       JobStatus            `json:"status"`
	Source       JobSourceKind        `json:"source"`
	Total        int                  `json:"total"`
	Succeeded    int                  `json:"succeeded"`
	Failed       int                  `json:"failed"`
	CurrentBatch int                  `json:"current_batch"`
	TotalBatches int                  `json:"total_batches"`
	CreatedAt    int64                `json:"created_at"`
	UpdatedAt    int64                `json:"updated_at"`
	StartedAt    int64                `json:"started_at"`
	EndedAt      int64                `json:"ended_at,omitempty"`
	URLs         map[string]*URLState `json:"urls"`
}

// JobStatusResponse is the response for GET /api/v1/jobs/:id.
type JobStatusResponse struct {
	ID        string               `json:"id"`
	Status    JobStatus            `json:"status"`
	Total     int                  `json:"total"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	URLs      map[string]*URLState `json:"urls,omitempty"`
}

// JobAcceptedResponse is the immediate response for POST /api/v1/jobs.
type JobAcceptedResponse struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
}
