// Package markdown converts cleaned HTML into the Markdown dialects the
// service offers: plain Markdown and a citation-style variant that moves
// inline links into a numbered reference list.
package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
)

// Converter wraps a reusable, goroutine-safe html-to-markdown converter.
type Converter struct {
	conv *converter.Converter
}

// New builds a Converter configured for LLM-optimised output:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta, link,
//     input, textarea, HTML comments — all noise for LLMs.
//   - commonmark plugin: standard Markdown rendering (headings, lists, links,
//     code blocks, emphasis, blockquotes, etc.).
//   - table plugin: preserves table structure with minimal cell padding to
//     save tokens.
func New() *Converter {
	return &Converter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// maxTableRows is the row count above which a table is dropped rather than
// rendered — past this size it's boilerplate (data grids, changelogs) that
// burns tokens without carrying article content.
const maxTableRows = 20

// placeholderImageRe matches src values that are decorative stand-ins, never
// real article images: tracking pixels, layout spacers, lazy-load blanks.
var placeholderImageRe = regexp.MustCompile(`(?i)blank\.gif|placeholder|spacer|1x1\.gif|pixel|transparent`)

// ToMarkdown converts clean HTML to Markdown. domain resolves relative URLs
// in <a> and <img> tags into absolute URLs so the output is self-contained.
//
// The HTML is pre-processed before the GFM transform (drop placeholder
// images, drop oversized tables, drop anchors with no useful text, strip
// any line already carrying a literal pipe, unescape backslash-escaped
// punctuation) and the resulting Markdown is post-processed (collapse
// runs of blank lines, strip any pipe-bearing line the table plugin left
// behind, and fix up escaped link syntax) so the final document holds to
// the "no line contains a pipe outside of what the caller explicitly
// wanted" contract regardless of what the source HTML looked like.
func (c *Converter) ToMarkdown(htmlContent string, domain string) (string, error) {
	pre := preProcess(htmlContent)
	out, err := c.conv.ConvertString(pre, converter.WithDomain(domain))
	if err != nil {
		return "", err
	}
	return postProcess(out), nil
}

// preProcess applies the Markdown Converter's HTML-level passes.
func preProcess(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return stripPipeLines(unescapeChars(htmlContent))
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" || placeholderImageRe.MatchString(src) {
			s.Remove()
		}
	})

	doc.Find("table").Each(func(_ int, s *goquery.Selection) {
		if s.Find("tr").Length() > maxTableRows {
			s.ReplaceWithHtml("<p></p>")
		}
	})

	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" || text == "#" {
			s.Remove()
		}
	})

	out, err := doc.Html()
	if err != nil {
		return stripPipeLines(unescapeChars(htmlContent))
	}
	return stripPipeLines(unescapeChars(out))
}

// escapeCharsRe unescapes the backslash-escaped punctuation that shows up in
// scraped documentation HTML: \_, \\, \`, \'.
var escapeCharsRe = regexp.MustCompile(`\\([_\\` + "`" + `'])`)

func unescapeChars(s string) string {
	return escapeCharsRe.ReplaceAllString(s, "$1")
}

// stripPipeLines drops any line already carrying a literal pipe before the
// GFM transform runs — leftover documentation-table residue that isn't a
// real HTML <table> the table plugin would otherwise render correctly.
func stripPipeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0:0]
	for _, line := range lines {
		if strings.Contains(line, "|") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// excessiveNewlinesRe collapses three-or-more newlines left behind by
// stripped lines/elements down to a single blank line.
var excessiveNewlinesRe = regexp.MustCompile(`\n{3,}`)

// escapedLinkRe fixes link syntax the converter occasionally emits with its
// brackets escaped: \[text\](url) -> [text](url).
var escapedLinkRe = regexp.MustCompile(`\\\[([^\]]*)\\\]\(([^)]*)\)`)

// postProcess applies the Markdown Converter's output-level passes.
func postProcess(md string) string {
	md = stripPipeLines(md)
	md = escapedLinkRe.ReplaceAllString(md, "[$1]($2)")
	md = excessiveNewlinesRe.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md)
}

// inlineLinkRe matches Markdown inline links: [text](url)
var inlineLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// ToCitations converts inline Markdown links to reference-style citations.
//
// Input:  "See [Google](https://google.com) and [GitHub](https://github.com)"
// Output: "See [Google][1] and [GitHub][2]\n\n---\n[1]: https://google.com\n[2]: https://github.com"
//
// Duplicate URLs reuse the same reference number.
func ToCitations(markdown string) string {
	urlToNum := make(map[string]int)
	var refs []string
	counter := 0

	result := inlineLinkRe.ReplaceAllStringFunc(markdown, func(match string) string {
		parts := inlineLinkRe.FindStringSubmatch(match)
		if len(parts) != 3 {
			return match
		}
		text := parts[1]
		url := parts[2]

		num, exists := urlToNum[url]
		if !exists {
			counter++
			num = counter
			urlToNum[url] = num
			refs = append(refs, fmt.Sprintf("[%d]: %s", num, url))
		}

		return fmt.Sprintf("[%s][%d]", text, num)
	})

	if len(refs) == 0 {
		return markdown
	}

	return result + "\n\n---\n" + strings.Join(refs, "\n")
}
