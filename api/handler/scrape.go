package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sf4ai-go/models"
	"github.com/use-agent/sf4ai-go/pipeline"
)

// Scrape returns a handler for POST /api/v1/scrape — a single-URL run of
// the Single-URL Pipeline (cache check, navigate, fallback ladder, clean,
// convert).
func Scrape(p *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ConversionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ConversionResult{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		// SSE mode: stream a started/completed pair instead of a single
		// JSON response, for callers that want to show liveness on a
		// slow conversion.
		if c.GetHeader("Accept") == "text/event-stream" {
			handleScrapeSSE(c, p, req)
			return
		}

		result, err := p.Run(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	scrapeErr, ok := err.(*models.ScrapeError)
	if !ok {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.ConversionResult{
		Success: false,
		Error:   scrapeErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}

// handleScrapeSSE runs the pipeline and streams started/error/completed
// events instead of a single JSON body.
func handleScrapeSSE(c *gin.Context, p *pipeline.Pipeline, req models.ConversionRequest) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	writeSSE(c, "scrape.started", map[string]any{"url": req.URL})

	result, err := p.Run(c.Request.Context(), req)
	if err != nil {
		writeSSE(c, "scrape.error", map[string]any{"error": err.Error()})
		return
	}

	writeSSE(c, "scrape.completed", result)
}

// writeSSE writes a single SSE event to the response.
func writeSSE(c *gin.Context, event string, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, jsonData)
	c.Writer.Flush()
}
