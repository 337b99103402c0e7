package cleaner

import (
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/use-agent/sf4ai-go/rules"
)

// Result is the cleaned article produced by Clean: extracted main content
// plus the metadata readability/pruning recovered along the way (title,
// byline, site name, language). The Metadata Extractor fills in the rest
// (canonical URL, OpenGraph fields) independently from the raw HTML.
type Result struct {
	Title       string
	Byline      string
	SiteName    string
	Language    string
	Content     string // cleaned HTML
	TextContent string // plain text, for the richness probe and token estimate
}

// Options carries the per-request cleaning knobs.
type Options struct {
	CSSSelector        string
	AggressiveCleaning bool
	RemoveImages       bool
}

// Clean runs the content-extraction and domain-rule cleaning pass:
//
//  1. If a CSS selector is given, narrow rawHTML to the matching elements
//     first — everything downstream operates on that subset.
//  2. Extract main content using extractMode (readability/pruning/auto/raw).
//  3. Apply the domain's rules (rules.For(sourceURL's domain)): remove
//     boilerplate selectors (nav/ads/cookie banners/etc, unless also
//     matched by a preserve selector), then run the normalize patterns
//     over the extracted text.
//  4. If AggressiveCleaning is set, also strip empty block elements left
//     behind by the removal pass. If RemoveImages is set, strip <img> tags.
func Clean(rawHTML, sourceURL, extractMode string, opts Options) (Result, error) {
	if opts.CSSSelector != "" {
		if narrowed, err := ApplyCSSSelector(rawHTML, opts.CSSSelector); err == nil {
			rawHTML = narrowed
		}
	}

	article := extract(rawHTML, sourceURL, extractMode)

	domain := hostOf(sourceURL)
	domainRules := rules.For(domain)

	cleanedHTML := removeBoilerplate(article.Content, domainRules)
	if opts.RemoveImages {
		cleanedHTML = removeImages(cleanedHTML)
	}
	if opts.AggressiveCleaning {
		cleanedHTML = removeEmptyElements(cleanedHTML)
	}

	text := stripTags(cleanedHTML)
	for _, pat := range domainRules.Normalize {
		text = pat.Apply(text)
	}

	return Result{
		Title:       article.Title,
		Byline:      article.Byline,
		SiteName:    article.SiteName,
		Language:    article.Language,
		Content:     cleanedHTML,
		TextContent: text,
	}, nil
}

// extract runs the requested content-extraction stage, never erroring: a
// failed extraction always falls back to the full rendered HTML so the
// pipeline never produces empty output.
func extract(rawHTML, sourceURL, extractMode string) readability.Article {
	switch extractMode {
	case "raw":
		return fallbackArticle(rawHTML)

	case "pruning":
		prunedHTML, err := PruneContent(rawHTML, sourceURL)
		if err != nil {
			slog.Warn("pruning: extraction failed, falling back to raw HTML", "url", sourceURL, "error", err)
			prunedHTML = rawHTML
		}
		meta, _ := ExtractContent(rawHTML, sourceURL)
		return readability.Article{
			Title:       meta.Title,
			Byline:      meta.Byline,
			Excerpt:     meta.Excerpt,
			SiteName:    meta.SiteName,
			Language:    meta.Language,
			Content:     prunedHTML,
			TextContent: stripTags(prunedHTML),
		}

	case "auto":
		return autoExtract(rawHTML, sourceURL)

	default: // "readability"
		article, _ := ExtractContent(rawHTML, sourceURL)
		return article
	}
}

// autoExtract runs both Readability and Pruning concurrently, then picks the
// result that extracted more meaningful text content.
func autoExtract(rawHTML, sourceURL string) readability.Article {
	var (
		readabilityArticle readability.Article
		prunedHTML         string
		pruneErr           error
	)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		readabilityArticle, _ = ExtractContent(rawHTML, sourceURL)
	}()

	go func() {
		defer wg.Done()
		prunedHTML, pruneErr = PruneContent(rawHTML, sourceURL)
	}()

	wg.Wait()

	if pruneErr != nil {
		slog.Warn("auto: pruning failed, using readability result", "url", sourceURL, "error", pruneErr)
		return readabilityArticle
	}

	prunedText := stripTags(prunedHTML)
	readabilityText := strings.TrimSpace(readabilityArticle.TextContent)

	// Pick the result with more extracted text, unless the longer one is
	// >10x the shorter — that usually means it kept too much noise.
	useReadability := len(readabilityText) >= len(prunedText)
	if useReadability && len(prunedText) > minContentLength {
		if len(readabilityText) > 10*len(prunedText) {
			useReadability = false
		}
	} else if !useReadability && len(readabilityText) > minContentLength {
		if len(prunedText) > 10*len(readabilityText) {
			useReadability = true
		}
	}

	if useReadability {
		return readabilityArticle
	}

	return readability.Article{
		Title:       readabilityArticle.Title,
		Byline:      readabilityArticle.Byline,
		Excerpt:     readabilityArticle.Excerpt,
		SiteName:    readabilityArticle.SiteName,
		Language:    readabilityArticle.Language,
		Content:     prunedHTML,
		TextContent: prunedText,
	}
}

// removeBoilerplate drops elements matched by the domain's RemoveSelectors,
// except where a PreserveSelectors match takes precedence. <img> tags are
// never removed by this generic pass, only by explicit rules (removeImages):
// before a matched container is stripped, any <img> it contains is cloned
// out to sit just before the container, so it survives the removal. A later
// removeImages pass is still free to strip it if the caller asked for that.
func removeBoilerplate(rawHTML string, dr rules.DomainRules) string {
	if len(dr.RemoveSelectors) == 0 {
		return rawHTML
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	preserved := make(map[*html.Node]bool)
	for _, sel := range dr.PreserveSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) { preserved[s.Get(0)] = true })
	}

	for _, sel := range dr.RemoveSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if preserved[s.Get(0)] {
				return
			}
			s.Find("img").Each(func(_ int, img *goquery.Selection) {
				if out, err := goquery.OuterHtml(img); err == nil {
					s.BeforeHtml(out)
				}
			})
			s.Remove()
		})
	}

	out, err := doc.Html()
	if err != nil {
		return rawHTML
	}
	return out
}

// removeImages strips <img> tags entirely.
func removeImages(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("img").Remove()
	out, err := doc.Html()
	if err != nil {
		return html
	}
	return out
}

// removeEmptyElements sweeps block elements left with no text and no
// meaningful children (e.g. an <img>-bearing <figure> survives; an empty
// <div> left behind by the removal pass does not).
func removeEmptyElements(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	for _, tag := range []string{"div", "span", "p", "section", "li"} {
		doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
			if strings.TrimSpace(s.Text()) == "" && s.Find("img, video, iframe, svg").Length() == 0 {
				s.Remove()
			}
		})
	}

	out, err := doc.Html()
	if err != nil {
		return html
	}
	return out
}

// PlainText extracts visible text from an HTML fragment, for callers outside
// this package that need a quick text-density read (the richness probe).
func PlainText(html string) string {
	return stripTags(html)
}

// stripTags extracts visible text from an HTML fragment. Returns trimmed
// plain text.
func stripTags(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
