package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"
)

func TestEnumerateSitemapFlattensIndex(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap_index.xml", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		w.Write([]byte(`<?xml version="1.0"?>
			<sitemapindex>
				<sitemap><loc>` + base + `/a.xml</loc></sitemap>
				<sitemap><loc>` + base + `/b.xml</loc></sitemap>
			</sitemapindex>`))
	})
	mux.HandleFunc("/a.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
			<urlset><url><loc>https://example.com/page1</loc></url></urlset>`))
	})
	mux.HandleFunc("/b.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
			<urlset><url><loc>https://example.com/page2</loc></url></urlset>`))
	})

	srv := httptest.NewServer(rewriteBaseHandler(mux))
	defer srv.Close()
	mux.HandleFunc("/rebased", func(w http.ResponseWriter, r *http.Request) {})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	urls, err := enumerateSitemap(ctx, srv.URL+"/sitemap_index.xml", 5, 5)
	if err != nil {
		t.Fatalf("enumerateSitemap: %v", err)
	}

	sort.Strings(urls)
	want := []string{"https://example.com/page1", "https://example.com/page2"}
	if len(urls) != len(want) {
		t.Fatalf("got %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestEnumerateSitemapFlatFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
			<urlset><url><loc>https://example.com/only</loc></url></urlset>`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	urls, err := enumerateSitemap(ctx, srv.URL+"/sitemap.xml", 5, 5)
	if err != nil {
		t.Fatalf("enumerateSitemap: %v", err)
	}
	if len(urls) != 1 || urls[0] != "https://example.com/only" {
		t.Errorf("got %v, want [https://example.com/only]", urls)
	}
}

// rewriteBaseHandler is a no-op passthrough; the index fixture above builds
// its child sitemap locations from the request's Host, so the index test
// reaches both child sitemaps on the same httptest server.
func rewriteBaseHandler(h http.Handler) http.Handler {
	return h
}
