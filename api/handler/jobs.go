package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sf4ai-go/jobs"
	"github.com/use-agent/sf4ai-go/models"
)

// PostJob returns a handler for POST /api/v1/jobs — enumerates a sitemap,
// literal URL list, or one-level start-page crawl and launches the Job
// Orchestrator's batched run in the background. Returns immediately.
func PostJob(o *jobs.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.JobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorDetail{
				Code:    models.ErrCodeInvalidInput,
				Message: err.Error(),
			})
			return
		}

		switch req.Source {
		case models.JobSourceSitemap:
			if req.SitemapURL == "" {
				c.JSON(http.StatusBadRequest, models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "sitemap_url is required when source is \"sitemap\"",
				})
				return
			}
		case models.JobSourceURLList:
			if len(req.URLs) == 0 {
				c.JSON(http.StatusBadRequest, models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "urls is required when source is \"url_list\"",
				})
				return
			}
		case models.JobSourceCrawl:
			if req.StartURL == "" {
				c.JSON(http.StatusBadRequest, models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "start_url is required when source is \"crawl\"",
				})
				return
			}
		}

		req.Options.Defaults()

		job, err := o.Submit(req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorDetail{
				Code:    models.ErrCodeInternal,
				Message: err.Error(),
			})
			return
		}

		c.JSON(http.StatusAccepted, models.JobAcceptedResponse{
			ID:     job.ID,
			Status: job.Status,
		})
	}
}

// GetJob returns a handler for GET /api/v1/jobs/:id.
func GetJob(o *jobs.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := o.Status(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, models.ErrorDetail{
				Code:    models.ErrCodeJobNotFound,
				Message: "job not found",
			})
			return
		}

		c.JSON(http.StatusOK, models.JobStatusResponse{
			ID:        job.ID,
			Status:    job.Status,
			Total:     job.Total,
			Succeeded: job.Succeeded,
			Failed:    job.Failed,
			URLs:      job.URLs,
		})
	}
}

// CancelJob returns a handler for POST /api/v1/jobs/:id/cancel. Cooperative:
// in-flight batch workers finish their current URL before the job's status
// observably becomes "cancelled". Idempotent — a second call is a no-op.
func CancelJob(o *jobs.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !o.Cancel(c.Param("id")) {
			c.JSON(http.StatusNotFound, models.ErrorDetail{
				Code:    models.ErrCodeJobNotFound,
				Message: "job not found",
			})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"id": c.Param("id"), "status": "cancelling"})
	}
}
