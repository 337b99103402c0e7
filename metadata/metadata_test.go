package metadata

import "testing"

func TestExtractPrefersCanonicalTags(t *testing.T) {
	html := `<html lang="en"><head>
		<title>Canonical Title</title>
		<meta name="description" content="Canonical description">
		<meta name="author" content="Jane Doe">
		<link rel="canonical" href="https://example.com/canonical">
		<meta property="og:title" content="OG Title">
		<meta property="og:description" content="OG description">
		<meta property="og:image" content="https://example.com/img.png">
	</head><body></body></html>`

	md := Extract(html, "https://example.com/page")

	if md.Title != "Canonical Title" {
		t.Errorf("Title = %q, want canonical title", md.Title)
	}
	if md.Description != "Canonical description" {
		t.Errorf("Description = %q, want canonical description", md.Description)
	}
	if md.Author != "Jane Doe" {
		t.Errorf("Author = %q", md.Author)
	}
	if md.Language != "en" {
		t.Errorf("Language = %q", md.Language)
	}
	if md.CanonicalURL != "https://example.com/canonical" {
		t.Errorf("CanonicalURL = %q", md.CanonicalURL)
	}
	if md.OGImage != "https://example.com/img.png" {
		t.Errorf("OGImage = %q", md.OGImage)
	}
}

func TestExtractFallsBackToOpenGraph(t *testing.T) {
	html := `<html><head>
		<meta property="og:title" content="OG Only Title">
		<meta property="og:description" content="OG Only description">
	</head><body></body></html>`

	md := Extract(html, "https://example.com/page")

	if md.Title != "OG Only Title" {
		t.Errorf("Title = %q, want OG fallback", md.Title)
	}
	if md.Description != "OG Only description" {
		t.Errorf("Description = %q, want OG fallback", md.Description)
	}
	if md.CanonicalURL != "https://example.com/page" {
		t.Errorf("CanonicalURL = %q, want source URL fallback", md.CanonicalURL)
	}
}
