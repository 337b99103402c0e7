// Package webhook delivers best-effort job progress and completion
// notifications: HMAC-signed JSON POSTs with bounded retries, logged but
// never fatal to the job they describe (spec.md §7's WebhookError).
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// BatchProgress is the progress payload's nested batch counter.
type BatchProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Progress is the progress payload's nested progress block.
type Progress struct {
	Processed  int           `json:"processed"`
	Total      int           `json:"total"`
	Percentage float64       `json:"percentage"`
	Success    int           `json:"success"`
	Failed     int           `json:"failed"`
	Batch      BatchProgress `json:"batch"`
}

// ResultItem is one URL's entry in a completed webhook's results arrays.
type ResultItem struct {
	URL       string  `json:"url"`
	Status    string  `json:"status"`
	Markdown  *string `json:"markdown"`
	Error     *string `json:"error"`
	Timestamp int64   `json:"timestamp"`
	Metadata  any     `json:"metadata,omitempty"`
}

// Summary is the completed payload's nested summary block.
type Summary struct {
	Total          int   `json:"total"`
	Processed      int   `json:"processed"`
	Successful     int   `json:"successful"`
	Failed         int   `json:"failed"`
	ProcessingTime int64 `json:"processingTime"`
}

// Results is the completed payload's nested results block.
type Results struct {
	Successful []ResultItem `json:"successful"`
	Failed     []ResultItem `json:"failed"`
}

// payload builds the envelope both POST functions send: jobId, status, the
// event-specific body, timestamp, with extraFields spliced in at the top
// level (spec.md §6 — "…extraFields").
func payload(jobID, status string, body map[string]any, extraFields map[string]any) map[string]any {
	out := map[string]any{
		"jobId":     jobID,
		"status":    status,
		"timestamp": time.Now().Unix(),
	}
	for k, v := range body {
		out[k] = v
	}
	for k, v := range extraFields {
		out[k] = v
	}
	return out
}

// PostProgress sends `{jobId, status:"in_progress", progress, timestamp,
// …extraFields}` best-effort with retries.
func PostProgress(url, secret string, headers map[string]string, extraFields map[string]any, jobID string, progress Progress) {
	body := payload(jobID, "in_progress", map[string]any{"progress": progress}, extraFields)
	deliverAsync(url, secret, headers, body, "job.progress", jobID)
}

// PostCompleted sends `{jobId, status, summary, results, timestamp,
// …extraFields}` best-effort with retries.
func PostCompleted(url, secret string, headers map[string]string, extraFields map[string]any, jobID, status string, summary Summary, results Results) {
	body := payload(jobID, status, map[string]any{"summary": summary, "results": results}, extraFields)
	deliverAsync(url, secret, headers, body, "job.completed", jobID)
}

// deliver sends one signed POST. The request body is signed with
// HMAC-SHA256 if secret is non-empty: header X-SF4AI-Signature: sha256=<hex>.
func deliver(ctx context.Context, url, secret string, headers map[string]string, body map[string]any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "sf4ai-webhook/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if secret != "" {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(data)
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-SF4AI-Signature", "sha256="+sig)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// deliverAsync retries with delays 0s, 1s, 5s, 30s, logging every outcome.
// A webhook never fails the job it describes (spec.md §7).
func deliverAsync(url, secret string, headers map[string]string, body map[string]any, eventType, jobID string) {
	go func() {
		delays := []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}
		for attempt, delay := range delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := deliver(ctx, url, secret, headers, body)
			cancel()
			if err == nil {
				slog.Info("webhook delivered", "url", url, "event", eventType, "job_id", jobID, "attempt", attempt+1)
				return
			}
			slog.Warn("webhook delivery failed", "url", url, "event", eventType, "job_id", jobID, "attempt", attempt+1, "error", err)
		}
		slog.Error("webhook delivery exhausted all retries", "url", url, "event", eventType, "job_id", jobID)
	}()
}
