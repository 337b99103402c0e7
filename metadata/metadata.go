// Package metadata extracts page-level metadata from raw HTML: title,
// description, site name, author, language, canonical URL, and OpenGraph
// fields. It is a pure function over the document — no navigation, no
// content cleaning — so it can run against the same raw HTML the Cleaner
// and richness probe see.
package metadata

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/sf4ai-go/models"
)

// Extract parses rawHTML and returns page metadata. sourceURL is used only
// as the fallback for CanonicalURL when no <link rel="canonical"> is present.
//
// Title and Description prefer the canonical HTML source (<title>,
// <meta name="description">) and fall back to their OpenGraph equivalents
// when empty, per the precedence spec.md's Metadata Extractor documents.
func Extract(rawHTML string, sourceURL string) models.Metadata {
	md := models.Metadata{SourceURL: sourceURL, CanonicalURL: sourceURL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return md
	}

	og := extractOpenGraph(doc)

	md.Title = strings.TrimSpace(doc.Find("title").First().Text())
	md.Description = metaContent(doc, "description")
	md.Author = metaContent(doc, "author")

	if lang, ok := doc.Find("html").Attr("lang"); ok {
		md.Language = strings.TrimSpace(lang)
	}

	if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok && href != "" {
		md.CanonicalURL = href
	}

	if md.Title == "" {
		md.Title = og.title
	}
	if md.Description == "" {
		md.Description = og.description
	}
	md.OGImage = og.image
	if md.SiteName == "" {
		md.SiteName = og.siteName
	}

	return md
}

type openGraph struct {
	title       string
	description string
	image       string
	siteName    string
}

func extractOpenGraph(doc *goquery.Document) openGraph {
	var og openGraph
	doc.Find("meta[property]").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		if content == "" {
			return
		}
		switch prop {
		case "og:title":
			og.title = content
		case "og:description":
			og.description = content
		case "og:image":
			og.image = content
		case "og:site_name":
			og.siteName = content
		}
	})
	return og
}

func metaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(`meta[name="` + name + `"]`).Attr("content")
	return strings.TrimSpace(content)
}
