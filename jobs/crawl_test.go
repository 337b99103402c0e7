package jobs

import (
	"context"
	"testing"

	"github.com/use-agent/sf4ai-go/models"
)

type fakePageConverter struct {
	pages map[string]string
}

func (f *fakePageConverter) Run(_ context.Context, req models.ConversionRequest) (*models.ConversionResult, error) {
	return &models.ConversionResult{Success: true, Content: f.pages[req.URL]}, nil
}

func TestEnumerateCrawlFindsSameHostLinksOnly(t *testing.T) {
	conv := &fakePageConverter{pages: map[string]string{
		"https://example.com/start": `<html><body>
			<a href="/about">About</a>
			<a href="https://example.com/pricing#plans">Pricing</a>
			<a href="https://other.example/elsewhere">Elsewhere</a>
			<a href="mailto:hi@example.com">Mail</a>
			<a href="/about">About again</a>
		</body></html>`,
	}}

	urls, err := enumerateCrawl(context.Background(), conv, "https://example.com/start", 0)
	if err != nil {
		t.Fatalf("enumerateCrawl: %v", err)
	}

	want := []string{
		"https://example.com/start",
		"https://example.com/about",
		"https://example.com/pricing",
	}
	if len(urls) != len(want) {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
	for i, u := range want {
		if urls[i] != u {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], u)
		}
	}
}

func TestEnumerateCrawlRespectsMaxLinks(t *testing.T) {
	conv := &fakePageConverter{pages: map[string]string{
		"https://example.com/start": `<html><body>
			<a href="/a">a</a>
			<a href="/b">b</a>
			<a href="/c">c</a>
		</body></html>`,
	}}

	urls, err := enumerateCrawl(context.Background(), conv, "https://example.com/start", 2)
	if err != nil {
		t.Fatalf("enumerateCrawl: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("urls = %v, want 2 entries (start + 1 link)", urls)
	}
	if urls[0] != "https://example.com/start" {
		t.Errorf("urls[0] = %q, want start URL first", urls[0])
	}
}

func TestEnumerateCrawlInvalidStartURL(t *testing.T) {
	conv := &fakePageConverter{}
	if _, err := enumerateCrawl(context.Background(), conv, "://bad", 0); err == nil {
		t.Fatal("expected error for unparsable start_url")
	}
}
