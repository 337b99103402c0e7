package jobs

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/use-agent/sf4ai-go/config"
	"github.com/use-agent/sf4ai-go/models"
)

type fakeConverter struct {
	fail  map[string]bool
	delay time.Duration
}

func (f *fakeConverter) Run(_ context.Context, req models.ConversionRequest) (*models.ConversionResult, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail[req.URL] {
		return nil, errors.New("simulated failure")
	}
	return &models.ConversionResult{Success: true, Content: "content for " + req.URL}, nil
}

func waitForStatus(t *testing.T, o *Orchestrator, id string, want models.JobStatus, timeout time.Duration) *models.Job {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		job, ok := o.Status(id)
		if ok && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach status %s in time", id, want)
	return nil
}

func TestOrchestratorURLListAllSucceed(t *testing.T) {
	dir := t.TempDir()
	o := New(&fakeConverter{}, config.JobsConfig{
		DefaultBatchSize:     2,
		DefaultMaxConcurrent: 2,
		ReportsDir:           dir,
	})

	job, err := o.Submit(models.JobRequest{
		Source: models.JobSourceURLList,
		URLs:   []string{"https://a.example", "https://b.example", "https://c.example"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForStatus(t, o, job.ID, models.JobStatusCompleted, 2*time.Second)
	if final.Total != 3 || final.Succeeded != 3 || final.Failed != 0 {
		t.Errorf("job = %+v, want total=3 succeeded=3 failed=0", final)
	}

	if _, err := os.Stat(dir + "/" + job.ID + ".json"); err != nil {
		t.Errorf("expected report file to exist: %v", err)
	}
}

func TestOrchestratorPartialFailure(t *testing.T) {
	o := New(&fakeConverter{fail: map[string]bool{"https://bad.example": true}}, config.JobsConfig{
		DefaultBatchSize:     10,
		DefaultMaxConcurrent: 5,
		ReportsDir:           t.TempDir(),
	})

	job, err := o.Submit(models.JobRequest{
		Source: models.JobSourceURLList,
		URLs:   []string{"https://good.example", "https://bad.example"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForStatus(t, o, job.ID, models.JobStatusPartial, 2*time.Second)
	if final.Succeeded != 1 || final.Failed != 1 {
		t.Errorf("job = %+v, want succeeded=1 failed=1", final)
	}
}

func TestOrchestratorTracksEveryEnumeratedURL(t *testing.T) {
	o := New(&fakeConverter{}, config.JobsConfig{
		DefaultBatchSize:     1,
		DefaultMaxConcurrent: 1,
		ReportsDir:           t.TempDir(),
	})

	job, err := o.Submit(models.JobRequest{
		Source: models.JobSourceURLList,
		URLs:   []string{"https://a.example", "https://b.example"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, o, job.ID, models.JobStatusCompleted, 2*time.Second)

	final, _ := o.Status(job.ID)
	if len(final.URLs) != 2 {
		t.Errorf("expected every enumerated URL tracked, got %d entries", len(final.URLs))
	}
}

func TestOrchestratorCancelStopsNewBatches(t *testing.T) {
	o := New(&fakeConverter{delay: 100 * time.Millisecond}, config.JobsConfig{
		DefaultBatchSize:     1,
		DefaultMaxConcurrent: 1,
		ReportsDir:           t.TempDir(),
	})

	job, err := o.Submit(models.JobRequest{
		Source: models.JobSourceURLList,
		URLs:   []string{"https://a.example", "https://b.example", "https://c.example"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !o.Cancel(job.ID) {
		t.Fatal("Cancel returned false for a known job")
	}

	final := waitForStatus(t, o, job.ID, models.JobStatusCancelled, 2*time.Second)
	if final.Total != 3 {
		t.Errorf("Total = %d, want 3 (enumeration runs before cancellation is observed)", final.Total)
	}
	if final.Succeeded >= final.Total {
		t.Errorf("expected cancellation to stop before every URL succeeded, got succeeded=%d total=%d",
			final.Succeeded, final.Total)
	}
}
