package jobs

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/use-agent/sf4ai-go/workerpool"
)

// sitemapIndex is a sitemap index XML document (a list of child sitemaps).
type sitemapIndex struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapEntry struct {
	Loc string `xml:"loc"`
}

// urlset is a regular sitemap XML document (a list of page URLs).
type urlset struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc string `xml:"loc"`
}

// enumerateSitemap recursively resolves a sitemap or sitemap-index URL into
// a flat list of page URLs, capped at maxDepth levels of index nesting with
// at most maxConcurrent sub-fetches in flight at each level.
func enumerateSitemap(ctx context.Context, sitemapURL string, maxDepth, maxConcurrent int) ([]string, error) {
	seen := &sync.Map{}
	pages, err := fetchLevel(ctx, []string{sitemapURL}, 0, maxDepth, maxConcurrent, seen)
	return dedupeURLs(pages), err
}

// dedupeURLs removes repeats while preserving first-seen order — the same
// page URL can legitimately appear in more than one sitemap document.
func dedupeURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func fetchLevel(ctx context.Context, urls []string, depth, maxDepth, maxConcurrent int, seen *sync.Map) ([]string, error) {
	if depth > maxDepth {
		return nil, nil
	}

	results := workerpool.Run(ctx, urls, maxConcurrent, func(ctx context.Context, u string) (fetchResult, error) {
		if _, loaded := seen.LoadOrStore(u, struct{}{}); loaded {
			return fetchResult{}, nil
		}
		return fetchSitemapDocument(ctx, u)
	})

	var pages []string
	var children []string
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		pages = append(pages, r.Value.pages...)
		children = append(children, r.Value.children...)
	}

	if len(children) > 0 {
		nested, err := fetchLevel(ctx, children, depth+1, maxDepth, maxConcurrent, seen)
		if err != nil {
			return pages, err
		}
		pages = append(pages, nested...)
	}

	return pages, nil
}

type fetchResult struct {
	pages    []string
	children []string
}

// fetchSitemapDocument fetches one sitemap document and classifies it: a
// sitemap-index yields children to recurse into, a regular sitemap yields
// page URLs directly.
func fetchSitemapDocument(ctx context.Context, sitemapURL string) (fetchResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return fetchResult{}, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fetchResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fetchResult{}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return fetchResult{}, err
	}

	var idx sitemapIndex
	if xml.Unmarshal(body, &idx) == nil && len(idx.Sitemaps) > 0 {
		var children []string
		for _, s := range idx.Sitemaps {
			if s.Loc != "" {
				children = append(children, s.Loc)
			}
		}
		return fetchResult{children: children}, nil
	}

	var us urlset
	if xml.Unmarshal(body, &us) == nil {
		var pages []string
		for _, u := range us.URLs {
			if u.Loc != "" {
				pages = append(pages, u.Loc)
			}
		}
		return fetchResult{pages: pages}, nil
	}

	return fetchResult{}, nil
}
