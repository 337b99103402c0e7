package jobs

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/sf4ai-go/models"
)

// enumerateCrawl fetches startURL once through conv (raw HTML, no content
// extraction) and returns startURL followed by every distinct same-host
// link found on it, capped at maxLinks. This is the "optional one-level
// crawl of a start page" spec.md §1 allows — it never follows a link one
// level further.
func enumerateCrawl(ctx context.Context, conv Converter, startURL string, maxLinks int) ([]string, error) {
	base, err := url.Parse(startURL)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid start_url", err)
	}

	req := models.ConversionRequest{
		URL:          startURL,
		OutputFormat: "html",
		ExtractMode:  "raw",
		MaxAge:       -1, // link discovery must see the live page, never a cached artifact
	}
	result, err := conv.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.Content))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "failed to parse start page for link discovery", err)
	}

	urls := []string{startURL}
	seen := map[string]struct{}{startURL: {}}

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if maxLinks > 0 && len(urls) >= maxLinks {
			return false
		}
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		abs, err := base.Parse(href)
		if err != nil {
			return true
		}
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return true
		}
		if !strings.EqualFold(abs.Host, base.Host) {
			return true
		}
		abs.Fragment = ""
		u := abs.String()
		if _, dup := seen[u]; dup {
			return true
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
		return true
	})

	return urls, nil
}
